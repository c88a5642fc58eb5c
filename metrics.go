package vaultcore

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts completed primary logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected primary logins.
	MetricLoginFailure
	// MetricSecondFactorRequired counts logins that entered the MFA
	// challenge phase.
	MetricSecondFactorRequired
	// MetricSecondFactorSuccess counts confirmed one-time codes.
	MetricSecondFactorSuccess
	// MetricSecondFactorFailure counts rejected one-time codes.
	MetricSecondFactorFailure
	// MetricSecondFactorRateLimited counts lockout limiter trips.
	MetricSecondFactorRateLimited
	// MetricBackupCodeUsed counts successfully consumed backup codes.
	MetricBackupCodeUsed
	// MetricBackupCodeFailed counts rejected backup codes.
	MetricBackupCodeFailed
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricStaleResultDiscarded counts collaborator responses discarded
	// by the staleness guard.
	MetricStaleResultDiscarded
	// MetricCredentialCreated counts credential record creations.
	MetricCredentialCreated
	// MetricCredentialUpdated counts credential record updates.
	MetricCredentialUpdated
	// MetricCredentialDeleted counts credential record deletions.
	MetricCredentialDeleted
	// MetricRiskSnapshotComputed counts risk snapshot computations.
	MetricRiskSnapshotComputed
	// MetricPasswordGenerated counts generated passwords.
	MetricPasswordGenerated
	// MetricRecoveryApproved counts approved recovery requests.
	MetricRecoveryApproved
	// MetricRecoveryDenied counts denied recovery requests.
	MetricRecoveryDenied
	// MetricRecoveryReviewFailed counts rejected review attempts
	// (conflict, expired, unauthorized, backend).
	MetricRecoveryReviewFailed

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds cache-line padded atomic counters. All operations are no-ops
// when the instance is nil or disabled, so call sites never branch.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics instance. When cfg.Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter into a fresh map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
