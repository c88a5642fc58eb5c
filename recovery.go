package vaultcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/volkpass/vaultcore/internal/stores"
)

// Admin-mediated account recovery. Requests are created by an out-of-scope
// self-service flow; this workflow only lists pending requests and applies
// exactly one decision per request. Decided requests are immutable and kept
// for audit.

// PendingRecoveryRequests lists requests awaiting review. Admin-only: the
// role check runs against the supplied session before the store is touched.
func (e *Engine) PendingRecoveryRequests(ctx context.Context, sess *SessionController) ([]RecoveryRequest, error) {
	if e == nil || e.recoveryStore == nil {
		return nil, ErrEngineNotReady
	}
	if !sess.IsAdmin() {
		return nil, ErrUnauthorized
	}

	requests, err := e.recoveryStore.ListPending(ctx)
	if err != nil {
		return nil, mapRecoveryStoreError(err)
	}
	return requests, nil
}

// ReviewRecovery applies an admin decision to a pending request. The
// transition is permanent: re-reviewing a decided request fails with
// [ErrConflict], reviewing past the token expiry fails with [ErrExpired],
// and a non-admin caller fails with [ErrUnauthorized] before any state is
// touched. Two admins racing on the same request are resolved by the store's
// compare-and-set; the loser gets [ErrConflict].
func (e *Engine) ReviewRecovery(
	ctx context.Context,
	sess *SessionController,
	requestID string,
	decision RecoveryDecision,
	notes string,
) (RecoveryRequest, error) {
	if e == nil || e.recoveryStore == nil {
		return RecoveryRequest{}, ErrEngineNotReady
	}
	if !sess.IsAdmin() {
		e.metricInc(MetricRecoveryReviewFailed)
		e.emitAudit(ctx, auditEventRecoveryReviewFailed, false, "", "", ErrUnauthorized, func() map[string]string {
			return map[string]string{
				"request_id": requestID,
			}
		})
		return RecoveryRequest{}, ErrUnauthorized
	}
	if requestID == "" {
		return RecoveryRequest{}, ErrInvalidInput
	}
	if decision != DecisionApprove && decision != DecisionDeny {
		return RecoveryRequest{}, ErrInvalidInput
	}

	admin, _ := sess.Principal()

	request, err := e.recoveryStore.Decide(ctx, requestID, decision, notes)
	if err != nil {
		mapped := mapRecoveryStoreError(err)
		e.metricInc(MetricRecoveryReviewFailed)
		e.emitAudit(ctx, auditEventRecoveryReviewFailed, false, admin.UserID, admin.Username, mapped, func() map[string]string {
			return map[string]string{
				"request_id": requestID,
				"decision":   string(decision),
			}
		})
		return RecoveryRequest{}, mapped
	}

	event := auditEventRecoveryApproved
	metric := MetricRecoveryApproved
	if decision == DecisionDeny {
		event = auditEventRecoveryDenied
		metric = MetricRecoveryDenied
	}
	e.metricInc(metric)
	e.emitAudit(ctx, event, true, admin.UserID, admin.Username, nil, func() map[string]string {
		return map[string]string{
			"request_id":   request.ID,
			"request_user": request.UserID,
			"kind":         string(request.Kind),
		}
	})
	return request, nil
}

func mapRecoveryStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrRecoveryNotFound):
		return ErrInvalidInput
	case errors.Is(err, stores.ErrRecoveryDecided):
		return ErrConflict
	case errors.Is(err, stores.ErrRecoveryExpired):
		return ErrExpired
	case errors.Is(err, stores.ErrRecoveryBackend):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrStoreUnavailable):
		// Custom RecoveryStore implementations return the public
		// sentinels directly.
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
