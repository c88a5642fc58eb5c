package vaultcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess            = "login_success"
	auditEventLoginFailure            = "login_failure"
	auditEventSecondFactorRequired    = "second_factor_required"
	auditEventSecondFactorSuccess     = "second_factor_success"
	auditEventSecondFactorFailure     = "second_factor_failure"
	auditEventSecondFactorRateLimited = "second_factor_rate_limited"
	auditEventBackupCodeUsed          = "backup_code_used"
	auditEventBackupCodeFailed        = "backup_code_failed"
	auditEventLogout                  = "logout"
	auditEventStaleResultDiscarded    = "stale_result_discarded"
	auditEventCredentialCreated       = "credential_created"
	auditEventCredentialUpdated       = "credential_updated"
	auditEventCredentialDeleted       = "credential_deleted"
	auditEventPasswordGenerated       = "password_generated"
	auditEventRecoveryApproved        = "recovery_approved"
	auditEventRecoveryDenied          = "recovery_denied"
	auditEventRecoveryReviewFailed    = "recovery_review_failed"
)

// AuditErrorCode is the stable error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidInput        AuditErrorCode = "invalid_input"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrSecondFactorInvalid AuditErrorCode = "second_factor_invalid"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrUnauthorized        AuditErrorCode = "unauthorized"
	auditErrConflict            AuditErrorCode = "conflict"
	auditErrExpired             AuditErrorCode = "expired"
	auditErrUnavailable         AuditErrorCode = "store_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	username string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Username:  username,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrAuthenticationFailed):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSecondFactorInvalid),
		errors.Is(err, ErrSecondFactorRequired):
		return auditErrSecondFactorInvalid
	case errors.Is(err, ErrVerifyRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrExpired):
		return auditErrExpired
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
