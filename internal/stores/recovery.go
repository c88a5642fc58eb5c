package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/redis/go-redis/v9"
)

const recoveryRecordVersion1 = 1

// Recovery request status values as stored.
const (
	RecoveryStatusPending  = "pending"
	RecoveryStatusApproved = "approved"
	RecoveryStatusDenied   = "denied"
)

var (
	// ErrRecoveryNotFound indicates there is no record under the ID.
	ErrRecoveryNotFound = errors.New("recovery request not found")
	// ErrRecoveryDecided indicates the record already left pending; it is
	// immutable from then on.
	ErrRecoveryDecided = errors.New("recovery request already decided")
	// ErrRecoveryExpired indicates the token expiry has passed; the
	// record stays pending.
	ErrRecoveryExpired = errors.New("recovery request expired")
	// ErrRecoveryBackend indicates the redis backend is unreachable.
	ErrRecoveryBackend = errors.New("recovery backend unavailable")
)

// RecoveryRecord is the stored form of a recovery request. Records are never
// deleted: decided ones are only removed from the pending index.
type RecoveryRecord struct {
	ID          string
	UserID      string
	Kind        string
	CreatedAt   int64
	TokenExpiry int64
	Status      string
	AdminNotes  string
}

// RecoveryRequestStore keeps recovery requests in redis under one key per
// record plus a set indexing the pending ones. Decide is a WATCH-based
// compare-and-set on Status == pending, so two concurrent admins cannot both
// apply a decision.
type RecoveryRequestStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRecoveryRequestStore creates a store. An empty prefix defaults to "vrr".
func NewRecoveryRequestStore(redisClient redis.UniversalClient, prefix string) *RecoveryRequestStore {
	if prefix == "" {
		prefix = "vrr"
	}
	return &RecoveryRequestStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RecoveryRequestStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RecoveryRequestStore) pendingKey() string {
	return s.prefix + ":pending"
}

// Save writes a record and indexes it as pending when its status is pending.
// Records carry no TTL: decided and expired requests are kept for audit.
func (s *RecoveryRequestStore) Save(ctx context.Context, record *RecoveryRecord) error {
	encoded, err := encodeRecoveryRecord(record)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.key(record.ID), encoded, 0)
	if record.Status == RecoveryStatusPending {
		pipe.SAdd(ctx, s.pendingKey(), record.ID)
	} else {
		pipe.SRem(ctx, s.pendingKey(), record.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryBackend, err)
	}
	return nil
}

// Get loads one record.
func (s *RecoveryRequestStore) Get(ctx context.Context, id string) (*RecoveryRecord, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecoveryNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRecoveryBackend, err)
	}
	return decodeRecoveryRecord(data)
}

// ListPending returns the pending records ordered by creation time, ties
// broken by ID so the listing is stable. Index entries whose record has
// vanished are dropped from the result.
func (s *RecoveryRequestStore) ListPending(ctx context.Context) ([]*RecoveryRecord, error) {
	ids, err := s.redis.SMembers(ctx, s.pendingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecoveryBackend, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	records := make([]*RecoveryRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRecoveryNotFound) {
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// Decide atomically moves a pending record to the given terminal status.
// A record that is already decided fails with ErrRecoveryDecided, one past
// its token expiry fails with ErrRecoveryExpired and stays pending.
func (s *RecoveryRequestStore) Decide(
	ctx context.Context,
	id string,
	status string,
	notes string,
	now int64,
) (*RecoveryRecord, error) {
	const maxRetries = 4
	key := s.key(id)

	for i := 0; i < maxRetries; i++ {
		var decided *RecoveryRecord
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeRecoveryRecord(data)
			if err != nil {
				return err
			}
			if record.Status != RecoveryStatusPending {
				return ErrRecoveryDecided
			}
			if now >= record.TokenExpiry {
				return ErrRecoveryExpired
			}

			record.Status = status
			record.AdminNotes = notes
			updated, err := encodeRecoveryRecord(record)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, 0)
				pipe.SRem(ctx, s.pendingKey(), id)
				return nil
			})
			if err != nil {
				return err
			}
			decided = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			// A concurrent decision touched the key; retry and let
			// the status check resolve the race.
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrRecoveryNotFound
			}
			if errors.Is(err, ErrRecoveryDecided) || errors.Is(err, ErrRecoveryExpired) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrRecoveryBackend, err)
		}
		return decided, nil
	}

	return nil, ErrRecoveryDecided
}

func encodeRecoveryRecord(record *RecoveryRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(recoveryRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.TokenExpiry); err != nil {
		return nil, err
	}

	for _, field := range []string{record.ID, record.UserID, record.Kind, record.Status, record.AdminNotes} {
		if len(field) > 65535 {
			return nil, errors.New("recovery record field length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeRecoveryRecord(data []byte) (*RecoveryRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recoveryRecordVersion1 {
		return nil, errors.New("invalid recovery record version")
	}

	record := &RecoveryRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.TokenExpiry); err != nil {
		return nil, err
	}

	for _, field := range []*string{&record.ID, &record.UserID, &record.Kind, &record.Status, &record.AdminNotes} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}
