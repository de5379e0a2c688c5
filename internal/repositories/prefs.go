package repositories

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/onair/internal/models"
)

// PrefsRepository persists the single preferences row and notifies subscribers of changes.
type PrefsRepository struct {
	db *sql.DB

	mu     sync.Mutex
	nextID int
	subs   map[int]func(models.Prefs)
}

// NewPrefsRepository creates a new [PrefsRepository] with the given database connection
func NewPrefsRepository(db *sql.DB) *PrefsRepository {
	return &PrefsRepository{db: db, subs: make(map[int]func(models.Prefs))}
}

// Get reads the current preferences.
func (r *PrefsRepository) Get() (models.Prefs, error) {
	var (
		autoExtension bool
		panelOpened   sql.NullBool
	)

	err := r.db.QueryRow(`SELECT auto_extension_enabled, panel_opened FROM preferences WHERE id = 1`).
		Scan(&autoExtension, &panelOpened)
	if err == sql.ErrNoRows {
		return models.Prefs{}, nil
	}
	if err != nil {
		return models.Prefs{}, fmt.Errorf("failed to query preferences: %w", err)
	}

	prefs := models.Prefs{AutoExtensionEnabled: autoExtension}
	if panelOpened.Valid {
		v := panelOpened.Bool
		prefs.PanelOpened = &v
	}
	return prefs, nil
}

// SetAutoExtension stores the auto-extension switch.
func (r *PrefsRepository) SetAutoExtension(enabled bool) error {
	return r.update(`UPDATE preferences SET auto_extension_enabled = ?, updated_at = ? WHERE id = 1`, enabled)
}

// SetPanelOpened stores whether the dashboard panel is open.
func (r *PrefsRepository) SetPanelOpened(opened bool) error {
	return r.update(`UPDATE preferences SET panel_opened = ?, updated_at = ? WHERE id = 1`, opened)
}

func (r *PrefsRepository) update(query string, value bool) error {
	if _, err := r.db.Exec(`INSERT OR IGNORE INTO preferences (id) VALUES (1)`); err != nil {
		return fmt.Errorf("failed to seed preferences: %w", err)
	}
	if _, err := r.db.Exec(query, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}

	prefs, err := r.Get()
	if err != nil {
		return err
	}
	r.notify(prefs)
	return nil
}

// Subscribe calls fn with the current preferences and again after every change made through r.
// The returned function removes the subscription.
func (r *PrefsRepository) Subscribe(fn func(models.Prefs)) (func(), error) {
	prefs, err := r.Get()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	fn(prefs)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}, nil
}

func (r *PrefsRepository) notify(prefs models.Prefs) {
	r.mu.Lock()
	subs := make([]func(models.Prefs), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(prefs)
	}
}
