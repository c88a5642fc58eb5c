package vaultcore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeAccountStore is a test double with hooks for blocking the verification
// call, so races between a slow collaborator and session transitions can be
// arranged deterministically.
type fakeAccountStore struct {
	mu sync.Mutex

	secrets      map[string]string
	secondFactor map[string]bool
	codes        map[string]string
	backupCodes  map[string]map[string]bool
	admins       map[string]bool

	verifyStarted chan struct{}
	verifyRelease chan struct{}

	failLogout  error
	failVerify  error
	logoutCalls int
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		secrets:      map[string]string{},
		secondFactor: map[string]bool{},
		codes:        map[string]string{},
		backupCodes:  map[string]map[string]bool{},
		admins:       map[string]bool{},
	}
}

func (s *fakeAccountStore) addUser(username, secret string, mfa bool, admin bool) {
	s.secrets[username] = secret
	s.secondFactor[username] = mfa
	s.admins[username] = admin
	if mfa {
		s.codes[username] = "123456"
		s.backupCodes[username] = map[string]bool{"backup-one": true, "backup-two": true}
	}
}

func (s *fakeAccountStore) principal(username string) Principal {
	return Principal{
		UserID:   "id-" + username,
		Username: username,
		Admin:    s.admins[username],
	}
}

func (s *fakeAccountStore) VerifyCredentials(ctx context.Context, username, secret string, register bool) (CredentialVerification, error) {
	if s.verifyStarted != nil {
		close(s.verifyStarted)
		s.verifyStarted = nil
	}
	if s.verifyRelease != nil {
		<-s.verifyRelease
	}
	if s.failVerify != nil {
		return CredentialVerification{}, s.failVerify
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if register {
		if _, exists := s.secrets[username]; exists {
			return CredentialVerification{}, ErrConflict
		}
		s.secrets[username] = secret
		return CredentialVerification{Principal: s.principal(username)}, nil
	}

	stored, ok := s.secrets[username]
	if !ok || stored != secret {
		return CredentialVerification{}, ErrAuthenticationFailed
	}
	if s.secondFactor[username] {
		return CredentialVerification{SecondFactorRequired: true, Username: username}, nil
	}
	return CredentialVerification{Principal: s.principal(username)}, nil
}

func (s *fakeAccountStore) VerifyCode(ctx context.Context, username, code string) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codes[username] != code {
		return Principal{}, ErrSecondFactorInvalid
	}
	return s.principal(username), nil
}

func (s *fakeAccountStore) VerifyBackupCode(ctx context.Context, username, code string) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := s.backupCodes[username]
	if codes == nil || !codes[code] {
		return Principal{}, ErrSecondFactorInvalid
	}
	delete(codes, code)
	return s.principal(username), nil
}

func (s *fakeAccountStore) Logout(ctx context.Context, principal Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutCalls++
	return s.failLogout
}

// fakeCredentialStore keeps records in a slice so listings are ordered.
type fakeCredentialStore struct {
	mu      sync.Mutex
	nextID  int
	records []CredentialRecord

	failList error
}

func (s *fakeCredentialStore) List(ctx context.Context) ([]CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]CredentialRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *fakeCredentialStore) Create(ctx context.Context, input CredentialInput) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	record := CredentialRecord{
		ID:          fmt.Sprintf("cred-%d", s.nextID),
		Site:        input.Site,
		URL:         input.URL,
		Username:    input.Username,
		Secret:      input.Secret,
		Category:    input.Category,
		Notes:       input.Notes,
		Compromised: input.Compromised,
		Strength:    input.Strength,
		UpdatedAt:   time.Now(),
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *fakeCredentialStore) Update(ctx context.Context, id string, patch CredentialPatch) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		if patch.Site != nil {
			s.records[i].Site = *patch.Site
		}
		if patch.Secret != nil {
			s.records[i].Secret = *patch.Secret
		}
		if patch.Compromised != nil {
			s.records[i].Compromised = *patch.Compromised
		}
		if patch.Strength != nil {
			s.records[i].Strength = *patch.Strength
		}
		s.records[i].UpdatedAt = time.Now()
		return s.records[i], nil
	}
	return CredentialRecord{}, ErrInvalidInput
}

func (s *fakeCredentialStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return ErrInvalidInput
}

// fakeRecoveryStore implements the compare-and-set contract in memory and
// returns the public sentinels directly.
type fakeRecoveryStore struct {
	mu       sync.Mutex
	requests map[string]RecoveryRequest
	now      func() time.Time
}

func newFakeRecoveryStore() *fakeRecoveryStore {
	return &fakeRecoveryStore{
		requests: map[string]RecoveryRequest{},
		now:      time.Now,
	}
}

func (s *fakeRecoveryStore) add(request RecoveryRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[request.ID] = request
}

func (s *fakeRecoveryStore) ListPending(ctx context.Context) ([]RecoveryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []RecoveryRequest
	for _, request := range s.requests {
		if request.Status == RecoveryPending {
			pending = append(pending, request)
		}
	}
	return pending, nil
}

func (s *fakeRecoveryStore) Decide(ctx context.Context, id string, decision RecoveryDecision, notes string) (RecoveryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return RecoveryRequest{}, ErrInvalidInput
	}
	if request.Status != RecoveryPending {
		return RecoveryRequest{}, ErrConflict
	}
	if !s.now().Before(request.TokenExpiry) {
		return RecoveryRequest{}, ErrExpired
	}

	if decision == DecisionDeny {
		request.Status = RecoveryDenied
	} else {
		request.Status = RecoveryApproved
	}
	request.AdminNotes = notes
	s.requests[id] = request
	return request, nil
}

type testEngineOptions struct {
	config    *Config
	accounts  *fakeAccountStore
	creds     *fakeCredentialStore
	recovery  RecoveryStore
	auditSink AuditSink
	redis     redis.UniversalClient
}

func newTestEngine(t *testing.T, opts testEngineOptions) (*Engine, *fakeAccountStore) {
	t.Helper()

	accounts := opts.accounts
	if accounts == nil {
		accounts = newFakeAccountStore()
		accounts.addUser("volk", "correct-secret", false, false)
	}

	cfg := defaultConfig()
	if opts.config != nil {
		cfg = *opts.config
	}
	cfg.Metrics.Enabled = true

	builder := New().
		WithConfig(cfg).
		WithAccountStore(accounts)
	if opts.creds != nil {
		builder.WithCredentialStore(opts.creds)
	}
	if opts.recovery != nil {
		builder.WithRecoveryStore(opts.recovery)
	}
	if opts.auditSink != nil {
		builder.WithAuditSink(opts.auditSink)
	}
	if opts.redis != nil {
		builder.WithRedis(opts.redis)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	return engine, accounts
}

func newTestRedis(t *testing.T) redis.UniversalClient {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func authenticatedSession(t *testing.T, engine *Engine, username, secret string) *SessionController {
	t.Helper()

	sess := engine.NewSession()
	result, err := sess.Login(context.Background(), username, secret, false)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.SecondFactorRequired {
		t.Fatal("unexpected second factor challenge in helper login")
	}
	return sess
}
