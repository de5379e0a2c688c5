package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/onair/internal/shared"
)

// sequenced lists the tables that have a companion <table>_sequence counter row.
var sequenced = map[string]bool{
	"program_history": true,
}

// NextSequence increments and returns the counter for table.
//
// Sequence numbers order history entries recorded within the same second.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenced[table] {
		return 0, fmt.Errorf("%w: no sequence for table %q", shared.ErrInvalidInput, table)
	}

	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}
