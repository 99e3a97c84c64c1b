// Package session holds the signed-in user's identity and API credential.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoUser = errors.New("no user id: set user_id or use a token carrying a uid claim")

// claims mirrors the claims the subscription API puts in its tokens. The
// client never verifies signatures; it only reads them.
type claims struct {
	UserID string `json:"uid"`
	Plan   string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// Session is the current user and credential. Replacing the credential
// persists it when the session was created with a credentials path.
type Session struct {
	mu     sync.RWMutex
	userID string
	token  string
	path   string
}

type credentialsFile struct {
	Token string `json:"token"`
}

// New creates a session. When userID is empty it is read from the token's
// uid claim.
func New(userID, token, path string) (*Session, error) {
	if userID == "" && token != "" {
		if c, err := parseClaims(token); err == nil {
			userID = c.UserID
		}
	}
	if userID == "" {
		return nil, ErrNoUser
	}
	return &Session{userID: userID, token: token, path: path}, nil
}

// LoadToken reads a previously persisted credential. A missing file is not
// an error and yields an empty token.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}
	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("parse credentials: %w", err)
	}
	return f.Token, nil
}

// UserID returns the signed-in user's id.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Token returns the current credential, possibly empty.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Plan returns the plan claim of the current credential, if it has one.
func (s *Session) Plan() string {
	c, err := parseClaims(s.Token())
	if err != nil {
		return ""
	}
	return c.Plan
}

// ReplaceCredential swaps in a renewed credential.
func (s *Session) ReplaceCredential(token string) error {
	s.mu.Lock()
	s.token = token
	path := s.path
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create credentials directory: %w", err)
		}
	}
	data, err := json.Marshal(credentialsFile{Token: token})
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func parseClaims(token string) (*claims, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
