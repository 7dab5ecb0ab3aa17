// Package session holds the per-session chat state: the append-only
// transcript and the shared reference bundle, plus assembly of the
// outbound request payload from both.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"postop/internal/handouts"
	"postop/internal/logging"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	// ErrEmptyInput is returned when a user turn is blank after trimming.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoPendingUserTurn is returned when an assistant turn arrives
	// without a user turn awaiting its answer.
	ErrNoPendingUserTurn = errors.New("no pending user turn to answer")
)

// Turn is a single transcript entry.
type Turn struct {
	Role    Role
	Content string
	Time    time.Time
}

// Session holds one transcript and the reference bundle it answers from.
// A session serves a single goroutine at a time; the UI serializes turns.
type Session struct {
	id        string
	startedAt time.Time
	turns     []Turn
	bundle    *handouts.Bundle
}

// New creates an empty session over the given reference bundle.
func New(bundle *handouts.Bundle) *Session {
	s := &Session{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		bundle:    bundle,
	}
	logging.Session("session %s started", s.id)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Bundle returns the reference bundle shared by all turns.
func (s *Session) Bundle() *handouts.Bundle {
	return s.bundle
}

// Len returns the number of turns in the transcript.
func (s *Session) Len() int {
	return len(s.turns)
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// LastRole returns the role of the newest turn, or "" for an empty
// transcript.
func (s *Session) LastRole() Role {
	if len(s.turns) == 0 {
		return ""
	}
	return s.turns[len(s.turns)-1].Role
}

// AppendUser adds a user turn. Blank input is rejected. A user turn may
// follow another user turn: a failed completion leaves the prior user
// turn unanswered, and the transcript keeps it.
func (s *Session) AppendUser(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	s.turns = append(s.turns, Turn{Role: RoleUser, Content: text, Time: time.Now()})
	logging.SessionDebug("session %s: user turn appended (len=%d)", s.id, len(s.turns))
	return nil
}

// AppendAssistant commits a completed answer. It must directly answer a
// user turn; anything else indicates a controller bug.
func (s *Session) AppendAssistant(text string) error {
	if s.LastRole() != RoleUser {
		return ErrNoPendingUserTurn
	}
	s.turns = append(s.turns, Turn{Role: RoleAssistant, Content: text, Time: time.Now()})
	logging.SessionDebug("session %s: assistant turn committed (len=%d)", s.id, len(s.turns))
	return nil
}

// Clear empties the transcript. The reference bundle is untouched.
func (s *Session) Clear() {
	s.turns = nil
	logging.Session("session %s: transcript cleared", s.id)
}
