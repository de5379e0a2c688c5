package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/desertthunder/onair/internal/models"
	"github.com/desertthunder/onair/internal/shared"
)

// HistoryRepository implements [models.Repository] for [models.HistoryEntry] persistence.
type HistoryRepository struct {
	db     *sql.DB
	clock  clockwork.Clock
	logger *log.Logger
}

var _ models.Repository[*models.HistoryEntry] = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new [HistoryRepository] with the given database connection.
// A nil clock uses the real clock and a nil logger writes to stderr.
func NewHistoryRepository(db *sql.DB, clock clockwork.Clock, logger *log.Logger) *HistoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &HistoryRepository{db: db, clock: clock, logger: logger}
}

// Create inserts a new entry into the database with generated ID and sequence
func (r *HistoryRepository) Create(entry *models.HistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "program_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO program_history (id, sequence, program_id, action, status, end_time, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, entry.ProgramID, string(entry.Action), string(entry.Status),
		entry.EndTime, entry.Error, entry.CreatedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	entry.SetID(id)
	return nil
}

// Get retrieves an entry by ID
func (r *HistoryRepository) Get(id string) (*models.HistoryEntry, error) {
	query := `
		SELECT id, program_id, action, status, end_time, error, created_at
		FROM program_history
		WHERE id = ?
	`

	entry, err := scanHistory(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: history entry %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history entry: %w", err)
	}
	return entry, nil
}

// List retrieves entries, newest first.
//
// Supported criteria: "program_id" (string), "action" (models.Action or string) and "limit" (int).
func (r *HistoryRepository) List(criteria map[string]any) ([]*models.HistoryEntry, error) {
	query := `
		SELECT id, program_id, action, status, end_time, error, created_at
		FROM program_history
		WHERE 1 = 1
	`
	args := []any{}

	if programID, ok := criteria["program_id"].(string); ok && programID != "" {
		query += " AND program_id = ?"
		args = append(args, programID)
	}

	switch action := criteria["action"].(type) {
	case models.Action:
		query += " AND action = ?"
		args = append(args, string(action))
	case string:
		if action != "" {
			query += " AND action = ?"
			args = append(args, action)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// OperationCompleted records a lifecycle outcome. Write failures are logged.
func (r *HistoryRepository) OperationCompleted(action models.Action, state models.ProgramState, err error) {
	entry := models.NewHistoryEntry(state.ProgramID, action, r.clock.Now())
	entry.Status = state.Status
	entry.EndTime = state.EndTime
	if err != nil {
		entry.Error = err.Error()
	}

	if createErr := r.Create(entry); createErr != nil {
		r.logger.Warn("failed to record history", "action", action, "program_id", state.ProgramID, "err", createErr)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (*models.HistoryEntry, error) {
	var (
		id        string
		programID string
		action    string
		status    string
		endTime   int64
		errText   string
		createdAt time.Time
	)

	if err := row.Scan(&id, &programID, &action, &status, &endTime, &errText, &createdAt); err != nil {
		return nil, err
	}

	entry := models.NewHistoryEntry(programID, models.Action(action), createdAt)
	entry.SetID(id)
	entry.Status = models.Status(status)
	entry.EndTime = endTime
	entry.Error = errText
	return entry, nil
}
