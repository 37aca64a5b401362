// Package session keeps per-sender conversation state for the coach.
//
// State is held in memory for the process lifetime only: a restart clears
// every conversation. The store interface exists so a persistent backend can
// be substituted without touching the webhook orchestration.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"whatscoach/internal/models"
)

// goalKeywords trigger goal capture when they appear anywhere in a user
// message (case-insensitive). Simple keyword detection, not NLP.
var goalKeywords = []string{"ziel", "goal", "möchte", "will", "plane", "vorhabe"}

// Store is the conversation state capability used by the orchestrator.
type Store interface {
	// GetOrCreate returns the state for addr, creating it with an empty
	// history and the current time as join date if absent.
	GetOrCreate(addr string) models.ConversationState

	// SetNameIfUnset records name in the profile unless one is already set
	// or name is empty.
	SetNameIfUnset(addr, name string)

	// AppendTurn appends one role-tagged turn to the history, dropping the
	// oldest turns so at most models.HistoryWindow entries remain.
	AppendTurn(addr string, role models.Role, content string)

	// RecordGoalIfPresent stores message as a goal when it contains a goal
	// keyword and is not already recorded verbatim.
	RecordGoalIfPresent(addr, message string)

	// BuildContextSummary renders a one-line profile summary used to steer
	// the completion request.
	BuildContextSummary(addr string) string

	// History returns a copy of the bounded history for addr.
	History(addr string) []models.Turn
}

// InMemoryStore holds conversation state in a process-wide map.
//
// A single mutex serializes individual operations, so the map itself is safe
// under Go's concurrent HTTP serving. A full webhook turn spans several
// calls and is not atomic: two truly simultaneous events from the same
// sender can still interleave between calls. The deployment assumption is
// that one sender does not produce concurrent events.
type InMemoryStore struct {
	mu     sync.Mutex
	states map[string]*models.ConversationState
	now    func() time.Time
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states: make(map[string]*models.ConversationState),
		now:    time.Now,
	}
}

// getOrCreateLocked returns the state for addr, creating it if needed.
// Callers must hold s.mu.
func (s *InMemoryStore) getOrCreateLocked(addr string) *models.ConversationState {
	state, ok := s.states[addr]
	if !ok {
		state = &models.ConversationState{
			History: []models.Turn{},
			Profile: models.Profile{Goals: []string{}, JoinedAt: s.now()},
		}
		s.states[addr] = state
		slog.Debug("InMemoryStore.getOrCreate: created conversation state", "addr", addr)
	}
	return state
}

// GetOrCreate returns a copy of the state for addr, creating it if absent.
func (s *InMemoryStore) GetOrCreate(addr string) models.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.getOrCreateLocked(addr))
}

// SetNameIfUnset records name in the profile unless one is already present.
func (s *InMemoryStore) SetNameIfUnset(addr, name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.getOrCreateLocked(addr)
	if state.Profile.Name == "" {
		state.Profile.Name = name
		slog.Debug("InMemoryStore.SetNameIfUnset: stored profile name", "addr", addr, "name", name)
	}
}

// AppendTurn appends one turn to the history, enforcing the sliding window.
func (s *InMemoryStore) AppendTurn(addr string, role models.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.getOrCreateLocked(addr)
	state.History = append(state.History, models.Turn{Role: role, Content: content, Timestamp: s.now()})
	if excess := len(state.History) - models.HistoryWindow; excess > 0 {
		state.History = state.History[excess:]
	}
}

// RecordGoalIfPresent stores message as a goal if it mentions one of the
// goal keywords and is not already recorded verbatim.
func (s *InMemoryStore) RecordGoalIfPresent(addr, message string) {
	lower := strings.ToLower(message)
	matched := false
	for _, kw := range goalKeywords {
		if strings.Contains(lower, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.getOrCreateLocked(addr)
	for _, g := range state.Profile.Goals {
		if g == message {
			return
		}
	}
	state.Profile.Goals = append(state.Profile.Goals, message)
	slog.Debug("InMemoryStore.RecordGoalIfPresent: recorded goal", "addr", addr, "goals", len(state.Profile.Goals))
}

// BuildContextSummary renders the deterministic one-line profile summary.
func (s *InMemoryStore) BuildContextSummary(addr string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.getOrCreateLocked(addr)

	name := "Name unknown"
	if state.Profile.Name != "" {
		name = "Name: " + state.Profile.Name
	}
	goals := "Not set yet"
	if len(state.Profile.Goals) > 0 {
		goals = strings.Join(state.Profile.Goals, ", ")
	}
	// German short date, matching what the participant was shown at signup.
	joined := state.Profile.JoinedAt.Format("2.1.2006")
	return fmt.Sprintf("User profile: %s, Goals: %s, Member since: %s", name, goals, joined)
}

// History returns a copy of the bounded history for addr.
func (s *InMemoryStore) History(addr string) []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.getOrCreateLocked(addr)
	history := make([]models.Turn, len(state.History))
	copy(history, state.History)
	return history
}

func copyState(state *models.ConversationState) models.ConversationState {
	out := models.ConversationState{
		History: make([]models.Turn, len(state.History)),
		Profile: models.Profile{
			Name:     state.Profile.Name,
			Goals:    make([]string, len(state.Profile.Goals)),
			JoinedAt: state.Profile.JoinedAt,
		},
	}
	copy(out.History, state.History)
	copy(out.Profile.Goals, state.Profile.Goals)
	return out
}
