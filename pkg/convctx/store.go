package convctx

import (
	"sync"
	"time"
)

// DefaultMaxTurns is the per-conversation buffer cap.
const DefaultMaxTurns = 10

type buffer struct {
	mu         sync.Mutex
	turns      []Turn
	lastActive time.Time
}

// Store holds one bounded turn buffer per conversation id. Buffers are
// created lazily on first append and live for the process lifetime unless
// cleared explicitly or swept for idleness.
type Store struct {
	mu       sync.RWMutex
	convs    map[string]*buffer
	maxTurns int
}

// NewStore creates a store with the given per-conversation cap.
// A cap of zero or less falls back to DefaultMaxTurns.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		convs:    make(map[string]*buffer),
		maxTurns: maxTurns,
	}
}

func (s *Store) bufferFor(conversationID string) *buffer {
	s.mu.RLock()
	buf, ok := s.convs[conversationID]
	s.mu.RUnlock()
	if ok {
		return buf
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if buf, ok = s.convs[conversationID]; ok {
		return buf
	}
	buf = &buffer{}
	s.convs[conversationID] = buf
	return buf
}

// Append adds a turn to the conversation's buffer, evicting the oldest
// turns first when the cap is exceeded. Appends to the same conversation
// are serialized; appends to different conversations do not contend.
func (s *Store) Append(conversationID string, turn Turn) {
	buf := s.bufferFor(conversationID)
	buf.mu.Lock()
	defer buf.mu.Unlock()
	buf.turns = append(buf.turns, turn)
	if overflow := len(buf.turns) - s.maxTurns; overflow > 0 {
		buf.turns = append(buf.turns[:0], buf.turns[overflow:]...)
	}
	buf.lastActive = time.Now()
}

// Snapshot returns a copy of the conversation's turns in order.
// Returns nil if the conversation has no buffer.
func (s *Store) Snapshot(conversationID string) []Turn {
	s.mu.RLock()
	buf, ok := s.convs[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	out := make([]Turn, len(buf.turns))
	copy(out, buf.turns)
	return out
}

// Clear empties the buffer for a conversation and reports whether a
// buffer existed. The emptied buffer stays registered so a subsequent
// Clear on the same id still reports true, matching reset-to-empty
// rather than destruction.
func (s *Store) Clear(conversationID string) bool {
	s.mu.RLock()
	buf, ok := s.convs[conversationID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	buf.turns = nil
	return true
}

// SweepIdle drops buffers whose last append is older than ttl and
// returns how many conversations were evicted.
func (s *Store) SweepIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted int
	for id, buf := range s.convs {
		buf.mu.Lock()
		stale := buf.lastActive.Before(cutoff)
		buf.mu.Unlock()
		if stale {
			delete(s.convs, id)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of turns currently buffered for a conversation.
func (s *Store) Len(conversationID string) int {
	s.mu.RLock()
	buf, ok := s.convs[conversationID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return len(buf.turns)
}
