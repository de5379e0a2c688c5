package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/onair/internal/shared"
)

// TokenStore persists a single OAuth token.
type TokenStore interface {
	Load() (*oauth2.Token, error) // Load returns [shared.ErrNotAuthenticated] when nothing is stored
	Save(token *oauth2.Token) error
	Clear() error
}

// EventKind tells subscribers what happened.
type EventKind string

const (
	EventLogin  EventKind = "login"
	EventLogout EventKind = "logout"
)

// Event is delivered to subscribers after the token store has been updated.
type Event struct {
	Kind EventKind
}

// Session is the auth collaborator of the lifecycle controller.
type Session struct {
	store  TokenStore
	config *oauth2.Config
	logger *log.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewSession creates a session over store. config enables token refresh and may be nil.
func NewSession(store TokenStore, config *oauth2.Config, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Session{
		store:  store,
		config: config,
		logger: shared.WithLogger(logger, "component", "auth"),
		subs:   make(map[int]func(Event)),
	}
}

// LoggedIn reports whether a token is stored.
func (s *Session) LoggedIn() bool {
	token, err := s.store.Load()
	return err == nil && token != nil && token.AccessToken != ""
}

// Token returns the stored token.
func (s *Session) Token() (*oauth2.Token, error) {
	token, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if token == nil || token.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return token, nil
}

// Login stores token and notifies subscribers.
func (s *Session) Login(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	if err := s.store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	s.logger.Info("logged in", "expiry", token.Expiry)
	s.emit(Event{Kind: EventLogin})
	return nil
}

// Logout removes the stored token and notifies subscribers.
func (s *Session) Logout() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	s.logger.Info("logged out")
	s.emit(Event{Kind: EventLogout})
	return nil
}

// Subscribe registers fn for later login and logout events.
// Events are delivered synchronously on the goroutine that called Login or Logout.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) emit(e Event) {
	s.mu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// TokenSource returns a source for API requests.
//
// With an OAuth config the stored token is refreshed when it expires and every new token is saved.
// Without one the stored token is used as is.
func (s *Session) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := s.Token()
	if err != nil {
		return nil, err
	}

	if s.config == nil {
		return oauth2.StaticTokenSource(token), nil
	}
	if !token.Valid() && token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: stored token expired at %s", shared.ErrNoRefreshToken, token.Expiry.Format(time.RFC3339))
	}

	source := &persistingTokenSource{
		source:  s.config.TokenSource(ctx, token),
		current: token.AccessToken,
		callback: func(t *oauth2.Token) {
			if err := s.store.Save(t); err != nil {
				s.logger.Warn("failed to persist refreshed token", "err", err)
				return
			}
			s.logger.Debug("refreshed token persisted", "expiry", t.Expiry)
		},
	}
	return oauth2.ReuseTokenSource(token, source), nil
}

// persistingTokenSource calls callback whenever the wrapped source yields a new access token.
type persistingTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu      sync.Mutex
	current string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
		}
		return nil, err
	}

	p.mu.Lock()
	changed := token.AccessToken != p.current
	p.current = token.AccessToken
	p.mu.Unlock()

	if changed && p.callback != nil {
		p.callback(token)
	}
	return token, nil
}
