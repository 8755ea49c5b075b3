package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cleanupInterval = 10 * time.Minute

// Runner executes one conversational turn and returns the reply text.
type Runner interface {
	Run(ctx context.Context, input string) (string, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, input string) (string, error)

func (f RunnerFunc) Run(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// session holds the per-conversation runner. The mutex serializes turns
// so messages within one session are processed in arrival order.
type session struct {
	runner     Runner
	mu         sync.Mutex
	lastAccess time.Time
}

// Manager maps signed session tokens to conversation state. Each session
// gets its own runner (and therefore its own history) from the factory.
type Manager struct {
	factory func() (Runner, error)
	secret  []byte
	ttl     time.Duration

	mu       sync.Mutex
	sessions map[string]*session

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
}

// NewManager creates a session manager. An empty secret gets replaced by
// a random per-process key, which invalidates tokens across restarts.
func NewManager(factory func() (Runner, error), secret string, ttl time.Duration) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	m := &Manager{
		factory:       factory,
		secret:        key,
		ttl:           ttl,
		sessions:      make(map[string]*session),
		cleanupTicker: time.NewTicker(cleanupInterval),
		cleanupDone:   make(chan struct{}),
	}
	go m.cleanupLoop()

	return m
}

// Resolve maps a client token to a session ID. An absent, invalid, or
// expired token starts a fresh session with a newly issued token.
func (m *Manager) Resolve(token string) (string, string, error) {
	if token != "" {
		if sid, err := m.ParseToken(token); err == nil {
			return sid, token, nil
		}
	}

	sid := newSessionID()
	fresh, err := m.IssueToken(sid)
	if err != nil {
		return "", "", fmt.Errorf("issuing session token: %w", err)
	}
	return sid, fresh, nil
}

// Run executes one turn against the given session, creating it on first
// use. Turns within a session never run concurrently.
func (m *Manager) Run(ctx context.Context, sid, input string) (string, error) {
	s, err := m.session(sid)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Run(ctx, input)
}

// IssueToken signs a token for the given session ID.
func (m *Manager) IssueToken(sid string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken validates a token and returns the session ID it carries.
func (m *Manager) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token is missing the session claim")
	}
	return claims.Subject, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop terminates the cleanup goroutine.
func (m *Manager) Stop() {
	m.cleanupTicker.Stop()
	close(m.cleanupDone)
}

func (m *Manager) session(sid string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sid]; ok {
		s.lastAccess = time.Now()
		return s, nil
	}

	runner, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("creating session runner: %w", err)
	}
	s := &session{runner: runner, lastAccess: time.Now()}
	m.sessions[sid] = s
	return s, nil
}

func (m *Manager) cleanupLoop() {
	for {
		select {
		case <-m.cleanupTicker.C:
			m.removeExpired(time.Now())
		case <-m.cleanupDone:
			return
		}
	}
}

func (m *Manager) removeExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for sid, s := range m.sessions {
		if now.Sub(s.lastAccess) > m.ttl {
			delete(m.sessions, sid)
			removed++
		}
	}
	return removed
}

func newSessionID() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
