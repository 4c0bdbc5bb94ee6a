package ledger

import "sync"

// SecurityLocks serializes mutating lot and reservation operations per
// security. A sale and a reservation on the same stock must not
// interleave, or both could claim the same shares; unrelated stocks
// proceed independently. One instance is shared by LotService and
// ReservationService.
type SecurityLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewSecurityLocks creates an empty lock set.
func NewSecurityLocks() *SecurityLocks {
	return &SecurityLocks{locks: make(map[int64]*sync.Mutex)}
}

// forStock returns the mutex guarding one stock, creating it on first use.
// Locks are never removed; the set is bounded by the number of symbols.
func (s *SecurityLocks) forStock(stockID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.locks[stockID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[stockID] = m
	}
	return m
}
