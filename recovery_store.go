package vaultcore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/volkpass/vaultcore/internal"
	"github.com/volkpass/vaultcore/internal/stores"
)

// RedisRecoveryStore is the default [RecoveryStore], backed by redis. Decisions
// are applied with a compare-and-set on the pending status, so concurrent
// admins cannot both decide the same request.
type RedisRecoveryStore struct {
	store      *stores.RecoveryRequestStore
	defaultTTL time.Duration
	now        func() time.Time
}

// NewRedisRecoveryStore creates a recovery store on the given redis client.
// defaultTTL bounds how long a submitted request stays actionable when the
// caller supplies no explicit expiry; zero falls back to 24 hours.
func NewRedisRecoveryStore(redisClient redis.UniversalClient, defaultTTL time.Duration) *RedisRecoveryStore {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &RedisRecoveryStore{
		store:      stores.NewRecoveryRequestStore(redisClient, "vrr"),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Submit records a new pending request on the user's behalf and returns it.
// A zero expiry defaults to now plus the store's TTL.
func (s *RedisRecoveryStore) Submit(ctx context.Context, userID string, kind RecoveryKind, expiry time.Time) (RecoveryRequest, error) {
	if userID == "" {
		return RecoveryRequest{}, ErrInvalidInput
	}
	if kind != RecoveryPasswordReset && kind != RecoverySecondFactorReset {
		return RecoveryRequest{}, ErrInvalidInput
	}

	id, err := internal.NewRequestID()
	if err != nil {
		return RecoveryRequest{}, err
	}

	now := s.now()
	if expiry.IsZero() {
		expiry = now.Add(s.defaultTTL)
	}

	record := &stores.RecoveryRecord{
		ID:          id.String(),
		UserID:      userID,
		Kind:        string(kind),
		CreatedAt:   now.Unix(),
		TokenExpiry: expiry.Unix(),
		Status:      stores.RecoveryStatusPending,
	}
	if err := s.store.Save(ctx, record); err != nil {
		return RecoveryRequest{}, err
	}
	return recoveryRequestFromRecord(record), nil
}

// ListPending implements [RecoveryStore].
func (s *RedisRecoveryStore) ListPending(ctx context.Context) ([]RecoveryRequest, error) {
	records, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	requests := make([]RecoveryRequest, 0, len(records))
	for _, record := range records {
		requests = append(requests, recoveryRequestFromRecord(record))
	}
	return requests, nil
}

// Decide implements [RecoveryStore].
func (s *RedisRecoveryStore) Decide(ctx context.Context, id string, decision RecoveryDecision, notes string) (RecoveryRequest, error) {
	status := stores.RecoveryStatusApproved
	if decision == DecisionDeny {
		status = stores.RecoveryStatusDenied
	}

	record, err := s.store.Decide(ctx, id, status, notes, s.now().Unix())
	if err != nil {
		return RecoveryRequest{}, err
	}
	return recoveryRequestFromRecord(record), nil
}

func recoveryRequestFromRecord(record *stores.RecoveryRecord) RecoveryRequest {
	return RecoveryRequest{
		ID:          record.ID,
		UserID:      record.UserID,
		Kind:        RecoveryKind(record.Kind),
		CreatedAt:   time.Unix(record.CreatedAt, 0).UTC(),
		TokenExpiry: time.Unix(record.TokenExpiry, 0).UTC(),
		Status:      RecoveryStatus(record.Status),
		AdminNotes:  record.AdminNotes,
	}
}
