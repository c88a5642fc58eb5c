package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/volkpass/vaultcore"
	"github.com/volkpass/vaultcore/internal"
)

// RecoveryStore implements [vaultcore.RecoveryStore] in memory. Decide is a
// compare-and-set under the store mutex, mirroring the redis-backed store's
// concurrency contract.
type RecoveryStore struct {
	mu       sync.Mutex
	requests map[string]vaultcore.RecoveryRequest

	ttl time.Duration
	now func() time.Time
}

// NewRecoveryStore creates an empty recovery store. ttl bounds how long a
// submitted request stays actionable; zero falls back to 24 hours.
func NewRecoveryStore(ttl time.Duration) *RecoveryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RecoveryStore{
		requests: make(map[string]vaultcore.RecoveryRequest),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Submit records a new pending request and returns it. A zero expiry
// defaults to now plus the store's TTL.
func (s *RecoveryStore) Submit(ctx context.Context, userID string, kind vaultcore.RecoveryKind, expiry time.Time) (vaultcore.RecoveryRequest, error) {
	if userID == "" {
		return vaultcore.RecoveryRequest{}, vaultcore.ErrInvalidInput
	}
	if kind != vaultcore.RecoveryPasswordReset && kind != vaultcore.RecoverySecondFactorReset {
		return vaultcore.RecoveryRequest{}, vaultcore.ErrInvalidInput
	}

	id, err := internal.NewRequestID()
	if err != nil {
		return vaultcore.RecoveryRequest{}, err
	}

	now := s.now()
	if expiry.IsZero() {
		expiry = now.Add(s.ttl)
	}

	request := vaultcore.RecoveryRequest{
		ID:          id.String(),
		UserID:      userID,
		Kind:        kind,
		CreatedAt:   now,
		TokenExpiry: expiry,
		Status:      vaultcore.RecoveryPending,
	}

	s.mu.Lock()
	s.requests[request.ID] = request
	s.mu.Unlock()

	return request, nil
}

// ListPending implements [vaultcore.RecoveryStore], ordered by creation time.
func (s *RecoveryStore) ListPending(ctx context.Context) ([]vaultcore.RecoveryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []vaultcore.RecoveryRequest
	for _, request := range s.requests {
		if request.Status == vaultcore.RecoveryPending {
			pending = append(pending, request)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})
	return pending, nil
}

// Decide implements [vaultcore.RecoveryStore]. An already decided request
// fails with [vaultcore.ErrConflict], an expired one with
// [vaultcore.ErrExpired] while staying pending.
func (s *RecoveryStore) Decide(ctx context.Context, id string, decision vaultcore.RecoveryDecision, notes string) (vaultcore.RecoveryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return vaultcore.RecoveryRequest{}, vaultcore.ErrInvalidInput
	}
	if request.Status != vaultcore.RecoveryPending {
		return vaultcore.RecoveryRequest{}, vaultcore.ErrConflict
	}
	if !s.now().Before(request.TokenExpiry) {
		return vaultcore.RecoveryRequest{}, vaultcore.ErrExpired
	}

	if decision == vaultcore.DecisionDeny {
		request.Status = vaultcore.RecoveryDenied
	} else {
		request.Status = vaultcore.RecoveryApproved
	}
	request.AdminNotes = notes

	s.requests[id] = request
	return request, nil
}
