package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/volkpass/vaultcore"
)

func TestCredentialLifecycle(t *testing.T) {
	store := NewCredentialStore()
	ctx := context.Background()

	created, err := store.Create(ctx, vaultcore.CredentialInput{
		Site:     "example.com",
		Username: "volk",
		Secret:   "s3cret-value",
		Strength: vaultcore.StrengthMedium,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if created.UpdatedAt.IsZero() {
		t.Fatal("Create did not set UpdatedAt")
	}

	site := "example.org"
	updated, err := store.Update(ctx, created.ID, vaultcore.CredentialPatch{Site: &site})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Site != "example.org" {
		t.Fatalf("Site = %q after patch", updated.Site)
	}
	if updated.Username != "volk" || updated.Secret != "s3cret-value" {
		t.Fatalf("patch touched unrelated fields: %+v", updated)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(records) != 1 || records[0].Site != "example.org" {
		t.Fatalf("unexpected listing: %+v", records)
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	records, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("listing not empty after delete: %+v", records)
	}
}

func TestCredentialUnknownID(t *testing.T) {
	store := NewCredentialStore()
	ctx := context.Background()

	if _, err := store.Update(ctx, "missing", vaultcore.CredentialPatch{}); !errors.Is(err, vaultcore.ErrInvalidInput) {
		t.Fatalf("Update unknown id: err = %v, want ErrInvalidInput", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, vaultcore.ErrInvalidInput) {
		t.Fatalf("Delete unknown id: err = %v, want ErrInvalidInput", err)
	}
}

func TestCredentialListOrderIsInsertionOrder(t *testing.T) {
	store := NewCredentialStore()
	ctx := context.Background()

	for _, site := range []string{"a.com", "b.com", "c.com"} {
		if _, err := store.Create(ctx, vaultcore.CredentialInput{Site: site, Secret: "x"}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	for i, want := range []string{"a.com", "b.com", "c.com"} {
		if records[i].Site != want {
			t.Fatalf("records[%d].Site = %q, want %q", i, records[i].Site, want)
		}
	}
}

func TestRecoveryDecideLifecycle(t *testing.T) {
	store := NewRecoveryStore(time.Hour)
	ctx := context.Background()

	request, err := store.Submit(ctx, "user-1", vaultcore.RecoveryPasswordReset, time.Time{})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if request.Status != vaultcore.RecoveryPending {
		t.Fatalf("Status = %q after submit", request.Status)
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != request.ID {
		t.Fatalf("unexpected pending list: %+v", pending)
	}

	decided, err := store.Decide(ctx, request.ID, vaultcore.DecisionApprove, "verified over phone")
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if decided.Status != vaultcore.RecoveryApproved || decided.AdminNotes != "verified over phone" {
		t.Fatalf("unexpected decided request: %+v", decided)
	}

	if _, err := store.Decide(ctx, request.ID, vaultcore.DecisionDeny, ""); !errors.Is(err, vaultcore.ErrConflict) {
		t.Fatalf("re-deciding: err = %v, want ErrConflict", err)
	}

	pending, err = store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending error: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending list not empty after decision: %+v", pending)
	}
}

func TestRecoveryDecideExpired(t *testing.T) {
	store := NewRecoveryStore(time.Hour)
	ctx := context.Background()

	request, err := store.Submit(ctx, "user-1", vaultcore.RecoverySecondFactorReset, time.Time{})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := store.Decide(ctx, request.ID, vaultcore.DecisionApprove, ""); !errors.Is(err, vaultcore.ErrExpired) {
		t.Fatalf("expired decide: err = %v, want ErrExpired", err)
	}

	// The record stays pending; expiry is never a stored status.
	store.mu.Lock()
	status := store.requests[request.ID].Status
	store.mu.Unlock()
	if status != vaultcore.RecoveryPending {
		t.Fatalf("Status = %q after expired decide, want pending", status)
	}
}

func TestRecoverySubmitValidation(t *testing.T) {
	store := NewRecoveryStore(time.Hour)
	ctx := context.Background()

	if _, err := store.Submit(ctx, "", vaultcore.RecoveryPasswordReset, time.Time{}); !errors.Is(err, vaultcore.ErrInvalidInput) {
		t.Fatalf("empty user: err = %v, want ErrInvalidInput", err)
	}
	if _, err := store.Submit(ctx, "user-1", vaultcore.RecoveryKind("bogus"), time.Time{}); !errors.Is(err, vaultcore.ErrInvalidInput) {
		t.Fatalf("bogus kind: err = %v, want ErrInvalidInput", err)
	}
}
