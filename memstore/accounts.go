package memstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/volkpass/vaultcore"
	"github.com/volkpass/vaultcore/otp"
	"github.com/volkpass/vaultcore/password"
)

const backupCodeCount = 8

type account struct {
	id           string
	username     string
	admin        bool
	passwordHash string
	totpSecret   []byte
	lastCounter  int64
	backupCodes  map[string]struct{}
}

// AccountStore implements [vaultcore.AccountStore] in memory. Passwords are
// hashed with Argon2id, second factor codes are verified through the otp
// package, and backup codes are stored as SHA-256 digests and consumed on
// first use.
type AccountStore struct {
	mu       sync.Mutex
	accounts map[string]*account

	hasher *password.Argon2
	totp   *otp.Manager
	now    func() time.Time
}

// NewAccountStore creates an empty account store.
func NewAccountStore() (*AccountStore, error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &AccountStore{
		accounts: make(map[string]*account),
		hasher:   hasher,
		totp:     otp.NewManager(otp.Config{Issuer: "VolkPass", Skew: 1}),
		now:      time.Now,
	}, nil
}

// Seed creates an account directly, bypassing the registration path. It is
// meant for bootstrap and tests. Returns the new principal.
func (s *AccountStore) Seed(username, secret string, admin bool) (vaultcore.Principal, error) {
	if username == "" || len(secret) < 8 {
		return vaultcore.Principal{}, vaultcore.ErrInvalidInput
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return vaultcore.Principal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[username]; exists {
		return vaultcore.Principal{}, vaultcore.ErrConflict
	}

	acct := &account{
		id:           uuid.NewString(),
		username:     username,
		admin:        admin,
		passwordHash: hash,
	}
	s.accounts[username] = acct
	return principalOf(acct), nil
}

// EnrollSecondFactor turns on TOTP for the account and returns the
// provisioning URI plus the one-time plaintext backup codes. The codes are
// shown exactly once; only their digests are retained.
func (s *AccountStore) EnrollSecondFactor(username string) (string, []string, error) {
	secret, encoded, err := s.totp.GenerateSecret()
	if err != nil {
		return "", nil, err
	}

	codes, hashes, err := newBackupCodes(backupCodeCount)
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[username]
	if !ok {
		return "", nil, vaultcore.ErrInvalidInput
	}
	acct.totpSecret = secret
	acct.lastCounter = -1
	acct.backupCodes = hashes

	return s.totp.ProvisionURI(encoded, username), codes, nil
}

// VerifyCredentials implements [vaultcore.AccountStore]. With register set,
// an unknown username is created on the fly; an existing one fails with
// [vaultcore.ErrConflict] before the secret is checked.
func (s *AccountStore) VerifyCredentials(ctx context.Context, username, secret string, register bool) (vaultcore.CredentialVerification, error) {
	s.mu.Lock()
	acct, exists := s.accounts[username]
	s.mu.Unlock()

	if register {
		if exists {
			return vaultcore.CredentialVerification{}, vaultcore.ErrConflict
		}
		principal, err := s.Seed(username, secret, false)
		if err != nil {
			return vaultcore.CredentialVerification{}, err
		}
		return vaultcore.CredentialVerification{Principal: principal}, nil
	}

	if !exists {
		// Burn comparable time so a missing account is not
		// distinguishable by latency, then fail the same way a wrong
		// secret does.
		_, _ = s.hasher.Verify(secret, decoyHash)
		return vaultcore.CredentialVerification{}, vaultcore.ErrAuthenticationFailed
	}

	ok, err := s.hasher.Verify(secret, acct.passwordHash)
	if err != nil || !ok {
		return vaultcore.CredentialVerification{}, vaultcore.ErrAuthenticationFailed
	}

	if len(acct.totpSecret) > 0 {
		return vaultcore.CredentialVerification{
			SecondFactorRequired: true,
			Username:             username,
		}, nil
	}
	return vaultcore.CredentialVerification{Principal: principalOf(acct)}, nil
}

// VerifyCode implements [vaultcore.AccountStore]. A counter already used is
// rejected, so the same code cannot be replayed within its validity window.
func (s *AccountStore) VerifyCode(ctx context.Context, username, code string) (vaultcore.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[username]
	if !ok || len(acct.totpSecret) == 0 {
		return vaultcore.Principal{}, vaultcore.ErrSecondFactorInvalid
	}

	matched, counter, err := s.totp.VerifyCode(acct.totpSecret, code, s.now())
	if err != nil {
		return vaultcore.Principal{}, err
	}
	if !matched || counter <= acct.lastCounter {
		return vaultcore.Principal{}, vaultcore.ErrSecondFactorInvalid
	}

	acct.lastCounter = counter
	return principalOf(acct), nil
}

// VerifyBackupCode implements [vaultcore.AccountStore]. A matching code is
// consumed; presenting it again fails.
func (s *AccountStore) VerifyBackupCode(ctx context.Context, username, code string) (vaultcore.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[username]
	if !ok || len(acct.backupCodes) == 0 {
		return vaultcore.Principal{}, vaultcore.ErrSecondFactorInvalid
	}

	digest := hashBackupCode(code)
	if _, ok := acct.backupCodes[digest]; !ok {
		return vaultcore.Principal{}, vaultcore.ErrSecondFactorInvalid
	}

	delete(acct.backupCodes, digest)
	return principalOf(acct), nil
}

// Logout implements [vaultcore.AccountStore]. There is no server-side
// session state to discard.
func (s *AccountStore) Logout(ctx context.Context, principal vaultcore.Principal) error {
	return nil
}

// BackupCodesRemaining reports how many unused backup codes the account has.
func (s *AccountStore) BackupCodesRemaining(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[username]
	if !ok {
		return 0
	}
	return len(acct.backupCodes)
}

func principalOf(acct *account) vaultcore.Principal {
	return vaultcore.Principal{
		UserID:   acct.id,
		Username: acct.username,
		Admin:    acct.admin,
	}
}

// decoyHash is a throwaway Argon2id hash used to equalize timing for unknown
// usernames. The plaintext behind it is random and discarded.
const decoyHash = "$argon2id$v=19$m=65536,t=3,p=2$" +
	"AAAAAAAAAAAAAAAAAAAAAA==$" +
	"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

func newBackupCodes(n int) ([]string, map[string]struct{}, error) {
	codes := make([]string, 0, n)
	hashes := make(map[string]struct{}, n)

	for i := 0; i < n; i++ {
		code, err := randomBackupCode()
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, code)
		hashes[hashBackupCode(code)] = struct{}{}
	}
	return codes, hashes, nil
}

func randomBackupCode() (string, error) {
	// 10 digits gives enough entropy for single-use codes behind a
	// rate limiter.
	max := big.NewInt(10_000_000_000)
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%010d", v), nil
}

func hashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
