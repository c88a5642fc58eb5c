package vaultcore

import (
	"context"
	"errors"
	"testing"
)

func newCredentialEngine(t *testing.T) (*Engine, *fakeCredentialStore) {
	t.Helper()

	creds := &fakeCredentialStore{}
	engine, _ := newTestEngine(t, testEngineOptions{creds: creds})
	return engine, creds
}

func TestAddCredentialStampsStrength(t *testing.T) {
	engine, _ := newCredentialEngine(t)
	ctx := context.Background()

	record, err := engine.AddCredential(ctx, CredentialInput{
		Site:   "example.com",
		Secret: "zq",
		// A caller-supplied label is always overwritten.
		Strength: StrengthStrong,
	})
	if err != nil {
		t.Fatalf("AddCredential failed: %v", err)
	}
	if record.Strength != StrengthWeak {
		t.Fatalf("Strength = %q, want weak for %q", record.Strength, record.Secret)
	}

	strong, err := engine.AddCredential(ctx, CredentialInput{
		Site:   "example.com",
		Secret: "Correct!Horse9BatteryStaple",
	})
	if err != nil {
		t.Fatalf("AddCredential failed: %v", err)
	}
	if strong.Strength != StrengthStrong {
		t.Fatalf("Strength = %q, want strong", strong.Strength)
	}
}

func TestAddCredentialValidation(t *testing.T) {
	engine, _ := newCredentialEngine(t)
	ctx := context.Background()

	if _, err := engine.AddCredential(ctx, CredentialInput{Secret: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing site: err = %v, want ErrInvalidInput", err)
	}
	if _, err := engine.AddCredential(ctx, CredentialInput{Site: "a.com"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing secret: err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateCredentialRecomputesStrengthOnSecretChange(t *testing.T) {
	engine, _ := newCredentialEngine(t)
	ctx := context.Background()

	record, err := engine.AddCredential(ctx, CredentialInput{Site: "a.com", Secret: "zq"})
	if err != nil {
		t.Fatalf("AddCredential failed: %v", err)
	}

	newSecret := "Correct!Horse9BatteryStaple"
	updated, err := engine.UpdateCredential(ctx, record.ID, CredentialPatch{Secret: &newSecret})
	if err != nil {
		t.Fatalf("UpdateCredential failed: %v", err)
	}
	if updated.Strength != StrengthStrong {
		t.Fatalf("Strength = %q after secret change, want strong", updated.Strength)
	}

	// A patch without a secret change leaves the label alone.
	site := "b.com"
	updated, err = engine.UpdateCredential(ctx, record.ID, CredentialPatch{Site: &site})
	if err != nil {
		t.Fatalf("UpdateCredential failed: %v", err)
	}
	if updated.Strength != StrengthStrong || updated.Site != "b.com" {
		t.Fatalf("unexpected record after site-only patch: %+v", updated)
	}
}

func TestDeleteCredential(t *testing.T) {
	engine, _ := newCredentialEngine(t)
	ctx := context.Background()

	record, err := engine.AddCredential(ctx, CredentialInput{Site: "a.com", Secret: "x1"})
	if err != nil {
		t.Fatalf("AddCredential failed: %v", err)
	}
	if err := engine.DeleteCredential(ctx, record.ID); err != nil {
		t.Fatalf("DeleteCredential failed: %v", err)
	}
	if err := engine.DeleteCredential(ctx, record.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("double delete: err = %v, want ErrInvalidInput", err)
	}
	if err := engine.DeleteCredential(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty id: err = %v, want ErrInvalidInput", err)
	}
}

func TestSearchCredentials(t *testing.T) {
	engine, _ := newCredentialEngine(t)
	ctx := context.Background()

	seeds := []CredentialInput{
		{Site: "GitHub", URL: "https://github.com", Username: "volk", Secret: "s1"},
		{Site: "Bank", Category: "finance", Secret: "s2"},
		{Site: "Forum", Notes: "old github mirror account", Secret: "s3"},
	}
	for _, input := range seeds {
		if _, err := engine.AddCredential(ctx, input); err != nil {
			t.Fatalf("AddCredential failed: %v", err)
		}
	}

	matches, err := engine.SearchCredentials(ctx, "GITHUB")
	if err != nil {
		t.Fatalf("SearchCredentials failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2 (site and notes)", len(matches))
	}

	matches, err = engine.SearchCredentials(ctx, "finance")
	if err != nil {
		t.Fatalf("SearchCredentials failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Site != "Bank" {
		t.Fatalf("unexpected matches: %+v", matches)
	}

	all, err := engine.SearchCredentials(ctx, "   ")
	if err != nil {
		t.Fatalf("SearchCredentials failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("blank query returned %d records, want 3", len(all))
	}
}

func TestRiskSnapshotThroughEngine(t *testing.T) {
	engine, _ := newCredentialEngine(t)
	ctx := context.Background()

	inputs := []CredentialInput{
		{Site: "a.com", Secret: "shared-secret", Compromised: true},
		{Site: "b.com", Secret: "shared-secret"},
		{Site: "c.com", Secret: "zq"},
	}
	for _, input := range inputs {
		if _, err := engine.AddCredential(ctx, input); err != nil {
			t.Fatalf("AddCredential failed: %v", err)
		}
	}

	snap, err := engine.RiskSnapshot(ctx)
	if err != nil {
		t.Fatalf("RiskSnapshot failed: %v", err)
	}
	if len(snap.Compromised) != 1 {
		t.Fatalf("len(Compromised) = %d, want 1", len(snap.Compromised))
	}
	if len(snap.Reused) != 2 {
		t.Fatalf("len(Reused) = %d, want 2", len(snap.Reused))
	}
	if len(snap.Weak) != 1 {
		t.Fatalf("len(Weak) = %d, want 1", len(snap.Weak))
	}
	if snap.IssueCount() != 4 {
		t.Fatalf("IssueCount = %d, want 4", snap.IssueCount())
	}
	if engine.metrics.Value(MetricRiskSnapshotComputed) != 1 {
		t.Fatal("snapshot metric not incremented")
	}
}

func TestCredentialOperationsWithoutStore(t *testing.T) {
	engine, _ := newTestEngine(t, testEngineOptions{})
	ctx := context.Background()

	if _, err := engine.AddCredential(ctx, CredentialInput{Site: "a", Secret: "b"}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("AddCredential without store: err = %v, want ErrEngineNotReady", err)
	}
	if _, err := engine.RiskSnapshot(ctx); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("RiskSnapshot without store: err = %v, want ErrEngineNotReady", err)
	}
}

func TestCredentialStoreFailureWraps(t *testing.T) {
	creds := &fakeCredentialStore{failList: errors.New("disk on fire")}
	engine, _ := newTestEngine(t, testEngineOptions{creds: creds})

	if _, err := engine.Credentials(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Credentials with failing store: err = %v, want ErrStoreUnavailable", err)
	}
}
