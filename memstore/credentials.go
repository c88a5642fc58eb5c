package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/volkpass/vaultcore"
)

// CredentialStore implements [vaultcore.CredentialStore] in memory. Records
// keep their insertion order, which makes listings and derived views
// deterministic.
type CredentialStore struct {
	mu      sync.Mutex
	order   []string
	records map[string]vaultcore.CredentialRecord

	now func() time.Time
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		records: make(map[string]vaultcore.CredentialRecord),
		now:     time.Now,
	}
}

// List implements [vaultcore.CredentialStore].
func (s *CredentialStore) List(ctx context.Context) ([]vaultcore.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]vaultcore.CredentialRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

// Create implements [vaultcore.CredentialStore].
func (s *CredentialStore) Create(ctx context.Context, input vaultcore.CredentialInput) (vaultcore.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := vaultcore.CredentialRecord{
		ID:          uuid.NewString(),
		Site:        input.Site,
		URL:         input.URL,
		Username:    input.Username,
		Secret:      input.Secret,
		Category:    input.Category,
		Notes:       input.Notes,
		Compromised: input.Compromised,
		Strength:    input.Strength,
		UpdatedAt:   s.now(),
	}

	s.records[record.ID] = record
	s.order = append(s.order, record.ID)
	return record, nil
}

// Update implements [vaultcore.CredentialStore]. Nil patch fields leave the
// stored value untouched.
func (s *CredentialStore) Update(ctx context.Context, id string, patch vaultcore.CredentialPatch) (vaultcore.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return vaultcore.CredentialRecord{}, vaultcore.ErrInvalidInput
	}

	if patch.Site != nil {
		record.Site = *patch.Site
	}
	if patch.URL != nil {
		record.URL = *patch.URL
	}
	if patch.Username != nil {
		record.Username = *patch.Username
	}
	if patch.Secret != nil {
		record.Secret = *patch.Secret
	}
	if patch.Category != nil {
		record.Category = *patch.Category
	}
	if patch.Notes != nil {
		record.Notes = *patch.Notes
	}
	if patch.Compromised != nil {
		record.Compromised = *patch.Compromised
	}
	if patch.Strength != nil {
		record.Strength = *patch.Strength
	}
	record.UpdatedAt = s.now()

	s.records[id] = record
	return record, nil
}

// Delete implements [vaultcore.CredentialStore].
func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return vaultcore.ErrInvalidInput
	}

	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
