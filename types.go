package vaultcore

import (
	"context"
	"time"
)

// Phase is the authentication state of one client session.
type Phase uint8

const (
	// PhaseAnonymous is the initial state: no principal, no pending
	// challenge. Logout always returns here.
	PhaseAnonymous Phase = iota
	// PhaseAuthenticating is the transient state while a login call is
	// outstanding against the account store.
	PhaseAuthenticating
	// PhaseAwaitingSecondFactor means primary credentials verified and a
	// one-time or backup code must be confirmed.
	PhaseAwaitingSecondFactor
	// PhaseAuthenticated means a principal is attached to the session.
	PhaseAuthenticated
)

// String returns the lowercase phase name used in audit metadata.
func (p Phase) String() string {
	switch p {
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAwaitingSecondFactor:
		return "awaiting_second_factor"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Principal is the identity attached to an authenticated session.
type Principal struct {
	UserID   string
	Username string
	Admin    bool
}

// Strength is the persisted classification of a credential secret.
type Strength string

const (
	// StrengthWeak covers scores below 40.
	StrengthWeak Strength = "weak"
	// StrengthMedium covers scores in [40, 70).
	StrengthMedium Strength = "medium"
	// StrengthStrong covers scores of 70 and above.
	StrengthStrong Strength = "strong"
)

// CredentialRecord is one stored secret. Records are owned by the
// [CredentialStore] collaborator; the core reads the set and writes back
// Strength on every create or update of the secret value.
type CredentialRecord struct {
	ID          string
	Site        string
	URL         string
	Username    string
	Secret      string
	Category    string
	Notes       string
	Compromised bool
	Strength    Strength
	UpdatedAt   time.Time
}

// CredentialInput is the payload for [Engine.AddCredential]. Strength is
// assigned by the engine before persistence and any caller-supplied value is
// overwritten.
type CredentialInput struct {
	Site        string
	URL         string
	Username    string
	Secret      string
	Category    string
	Notes       string
	Compromised bool
	Strength    Strength
}

// CredentialPatch is a partial update for [Engine.UpdateCredential]. Nil
// fields are left untouched. When Secret is set the engine recomputes and
// sets Strength; a caller-supplied Strength is otherwise passed through so
// external reclassification stays possible.
type CredentialPatch struct {
	Site        *string
	URL         *string
	Username    *string
	Secret      *string
	Category    *string
	Notes       *string
	Compromised *bool
	Strength    *Strength
}

// RiskSnapshot is a derived, non-persisted view over a credential set. The
// three lists are independent and may overlap: a record can be compromised,
// reused, and weak at the same time.
type RiskSnapshot struct {
	Compromised []CredentialRecord
	Reused      []CredentialRecord
	Weak        []CredentialRecord
}

// IssueCount is the aggregate issue counter shown to users: the plain sum of
// the three list lengths. A record appearing in several lists is counted once
// per list; the double counting is the documented contract and must not be
// deduplicated.
func (s RiskSnapshot) IssueCount() int {
	return len(s.Compromised) + len(s.Reused) + len(s.Weak)
}

// RecoveryKind distinguishes what a recovery request resets.
type RecoveryKind string

const (
	// RecoveryPasswordReset requests a password reset on the user's behalf.
	RecoveryPasswordReset RecoveryKind = "password_reset"
	// RecoverySecondFactorReset requests a second-factor reset.
	RecoverySecondFactorReset RecoveryKind = "second_factor_reset"
)

// RecoveryStatus is the lifecycle state of a recovery request.
type RecoveryStatus string

const (
	// RecoveryPending is the initial state and the only mutable one.
	RecoveryPending RecoveryStatus = "pending"
	// RecoveryApproved is terminal.
	RecoveryApproved RecoveryStatus = "approved"
	// RecoveryDenied is terminal.
	RecoveryDenied RecoveryStatus = "denied"
)

// RecoveryDecision is an admin's verdict on a pending request.
type RecoveryDecision string

const (
	// DecisionApprove moves the request to [RecoveryApproved].
	DecisionApprove RecoveryDecision = "approve"
	// DecisionDeny moves the request to [RecoveryDenied].
	DecisionDeny RecoveryDecision = "deny"
)

// RecoveryRequest is an admin-reviewable request to reset a password or
// second factor. Once Status leaves pending the request is immutable; decided
// requests are kept for audit, never deleted.
type RecoveryRequest struct {
	ID          string
	UserID      string
	Kind        RecoveryKind
	CreatedAt   time.Time
	TokenExpiry time.Time
	Status      RecoveryStatus
	AdminNotes  string
}

// Actionable reports whether the request can still be decided at the given
// time. Expiry is a derived condition, never a stored status.
func (r RecoveryRequest) Actionable(now time.Time) bool {
	return r.Status == RecoveryPending && now.Before(r.TokenExpiry)
}

// LoginResult is returned by [SessionController.Login]. Either Principal is
// populated, or SecondFactorRequired is set with the verified username that
// the UI displays on the challenge screen.
type LoginResult struct {
	Principal Principal

	SecondFactorRequired bool
	Username             string
}

// CredentialVerification is returned by [AccountStore.VerifyCredentials].
type CredentialVerification struct {
	Principal Principal

	// SecondFactorRequired signals the MFA challenge path; Username
	// carries the verified username for the challenge screen and no
	// principal is exposed yet.
	SecondFactorRequired bool
	Username             string
}

// AccountStore is the account persistence and credential verification
// collaborator. Implementations must not reveal whether a username exists
// versus a secret being wrong: both come back as
// [ErrAuthenticationFailed]. The backup-code variant must mark the code
// consumed on success so a replayed code fails with
// [ErrSecondFactorInvalid].
type AccountStore interface {
	VerifyCredentials(ctx context.Context, username, secret string, register bool) (CredentialVerification, error)
	VerifyCode(ctx context.Context, username, code string) (Principal, error)
	VerifyBackupCode(ctx context.Context, username, code string) (Principal, error)
	Logout(ctx context.Context, principal Principal) error
}

// CredentialStore is the credential record persistence collaborator.
// Implementations assign IDs on Create and set UpdatedAt on every write.
type CredentialStore interface {
	List(ctx context.Context) ([]CredentialRecord, error)
	Create(ctx context.Context, input CredentialInput) (CredentialRecord, error)
	Update(ctx context.Context, id string, patch CredentialPatch) (CredentialRecord, error)
	Delete(ctx context.Context, id string) error
}

// RecoveryStore is the recovery request persistence collaborator. Decide must
// be an atomic compare-and-set on Status == pending: a losing concurrent
// decision fails with [ErrConflict] (or an implementation sentinel the engine
// maps to it), an expired pending request with [ErrExpired], and an unknown
// ID with [ErrInvalidInput].
type RecoveryStore interface {
	ListPending(ctx context.Context) ([]RecoveryRequest, error)
	Decide(ctx context.Context, id string, decision RecoveryDecision, notes string) (RecoveryRequest, error)
}
