package vaultcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Credential operations. The engine is the only writer allowed to set
// Strength: every create and every secret change recomputes the score before
// the record reaches the store, so persisted strength always reflects the
// current secret value.

// Credentials returns the full credential set from the store.
func (e *Engine) Credentials(ctx context.Context) ([]CredentialRecord, error) {
	if e == nil || e.credentialStore == nil {
		return nil, ErrEngineNotReady
	}
	records, err := e.credentialStore.List(ctx)
	if err != nil {
		return nil, mapCredentialStoreError(err)
	}
	return records, nil
}

// AddCredential scores the secret, stamps the strength classification, and
// persists the record.
func (e *Engine) AddCredential(ctx context.Context, input CredentialInput) (CredentialRecord, error) {
	if e == nil || e.credentialStore == nil {
		return CredentialRecord{}, ErrEngineNotReady
	}
	if input.Site == "" || input.Secret == "" {
		return CredentialRecord{}, ErrInvalidInput
	}

	input.Strength = ClassifyStrength(ScoreStrength(input.Secret))

	record, err := e.credentialStore.Create(ctx, input)
	if err != nil {
		return CredentialRecord{}, mapCredentialStoreError(err)
	}

	e.metricInc(MetricCredentialCreated)
	e.emitAudit(ctx, auditEventCredentialCreated, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"credential_id": record.ID,
			"strength":      string(record.Strength),
		}
	})
	return record, nil
}

// UpdateCredential applies a partial update. When the patch changes the
// secret value the strength is recomputed and written with the same patch;
// the store never sees a secret change without its matching classification.
func (e *Engine) UpdateCredential(ctx context.Context, id string, patch CredentialPatch) (CredentialRecord, error) {
	if e == nil || e.credentialStore == nil {
		return CredentialRecord{}, ErrEngineNotReady
	}
	if id == "" {
		return CredentialRecord{}, ErrInvalidInput
	}

	if patch.Secret != nil {
		strength := ClassifyStrength(ScoreStrength(*patch.Secret))
		patch.Strength = &strength
	}

	record, err := e.credentialStore.Update(ctx, id, patch)
	if err != nil {
		return CredentialRecord{}, mapCredentialStoreError(err)
	}

	e.metricInc(MetricCredentialUpdated)
	e.emitAudit(ctx, auditEventCredentialUpdated, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"credential_id": record.ID,
			"strength":      string(record.Strength),
		}
	})
	return record, nil
}

// DeleteCredential removes a record from the store.
func (e *Engine) DeleteCredential(ctx context.Context, id string) error {
	if e == nil || e.credentialStore == nil {
		return ErrEngineNotReady
	}
	if id == "" {
		return ErrInvalidInput
	}

	if err := e.credentialStore.Delete(ctx, id); err != nil {
		return mapCredentialStoreError(err)
	}

	e.metricInc(MetricCredentialDeleted)
	e.emitAudit(ctx, auditEventCredentialDeleted, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"credential_id": id,
		}
	})
	return nil
}

// SearchCredentials returns records whose site, URL, username, category, or
// notes contain the query, case-insensitively. A blank query returns the
// whole set.
func (e *Engine) SearchCredentials(ctx context.Context, query string) ([]CredentialRecord, error) {
	records, err := e.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return records, nil
	}

	matched := records[:0:0]
	for _, record := range records {
		fields := []string{record.Site, record.URL, record.Username, record.Category, record.Notes}
		for _, field := range fields {
			if field != "" && strings.Contains(strings.ToLower(field), query) {
				matched = append(matched, record)
				break
			}
		}
	}
	return matched, nil
}

// RiskSnapshot loads the current credential set and computes a fresh
// [RiskSnapshot]. The snapshot is never persisted; callers re-invoke this
// whenever the credential set changes.
func (e *Engine) RiskSnapshot(ctx context.Context) (RiskSnapshot, error) {
	if e == nil || e.credentialStore == nil {
		return RiskSnapshot{}, ErrEngineNotReady
	}

	records, err := e.credentialStore.List(ctx)
	if err != nil {
		return RiskSnapshot{}, mapCredentialStoreError(err)
	}

	snap := ComputeRiskSnapshot(records)
	e.metricInc(MetricRiskSnapshotComputed)
	return snap, nil
}

func mapCredentialStoreError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
