// Package session tracks whether a browser has linked a workspace identity.
//
// A Session moves Disconnected -> Connecting -> Connected. Connecting is
// entered when the install flow redirects back with an authorization code;
// a failed exchange drops back to Disconnected with LastError set so the UI
// can offer a retry. Disconnect is valid from any state.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid session transition")
)

type Session struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	TeamID    string    `json:"teamId,omitempty"`
	TeamName  string    `json:"teamName,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		State:     Disconnected,
		UpdatedAt: time.Now().UTC(),
	}
}

func (s *Session) IsConnected() bool {
	return s.State == Connected && s.TeamID != ""
}

// BeginConnect enters Connecting. Re-linking from Connected is allowed.
func (s *Session) BeginConnect() {
	s.State = Connecting
	s.LastError = ""
	s.touch()
}

// Complete records the linked team and enters Connected.
func (s *Session) Complete(teamID, teamName string) error {
	if s.State != Connecting {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, s.State)
	}
	if teamID == "" {
		return fmt.Errorf("%w: empty team id", ErrInvalidTransition)
	}
	s.State = Connected
	s.TeamID = teamID
	s.TeamName = teamName
	s.LastError = ""
	s.touch()
	return nil
}

// Fail abandons a connection attempt.
func (s *Session) Fail(reason string) error {
	if s.State != Connecting {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, s.State)
	}
	s.reset()
	s.LastError = reason
	return nil
}

// Disconnect forgets the team identity.
func (s *Session) Disconnect() {
	s.reset()
	s.LastError = ""
}

func (s *Session) reset() {
	s.State = Disconnected
	s.TeamID = ""
	s.TeamName = ""
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
