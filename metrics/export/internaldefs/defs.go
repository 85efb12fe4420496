package internaldefs

import (
	"github.com/MrEthical07/edgeauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   edgeauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   edgeauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: edgeauth.MetricLoginSuccess, Name: "edgeauth_login_success_total", Help: "Successful logins."},
	{ID: edgeauth.MetricLoginFailure, Name: "edgeauth_login_failure_total", Help: "Failed logins."},
	{ID: edgeauth.MetricRefreshSuccess, Name: "edgeauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: edgeauth.MetricRefreshFailure, Name: "edgeauth_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: edgeauth.MetricRefreshReuseDetected, Name: "edgeauth_refresh_reuse_detected_total", Help: "Refresh tokens presented more than once."},
	{ID: edgeauth.MetricSessionCreated, Name: "edgeauth_session_created_total", Help: "Created sessions."},
	{ID: edgeauth.MetricSessionRevoked, Name: "edgeauth_session_revoked_total", Help: "Sessions deleted by logout or reuse detection."},
	{ID: edgeauth.MetricLogout, Name: "edgeauth_logout_total", Help: "Logout calls."},
	{ID: edgeauth.MetricRateLimitHit, Name: "edgeauth_rate_limit_hit_total", Help: "Requests denied by a rate limit policy."},
	{ID: edgeauth.MetricAccessDenied, Name: "edgeauth_access_denied_total", Help: "Requests rejected by the access guard for token problems."},
	{ID: edgeauth.MetricForbidden, Name: "edgeauth_forbidden_total", Help: "Requests rejected for insufficient role."},
	{ID: edgeauth.MetricStoreUnavailable, Name: "edgeauth_store_unavailable_total", Help: "Operations failed closed on a store error."},
	{ID: edgeauth.MetricAuditDropped, Name: AuditDroppedName, Help: "Audit events dropped on a full buffer or at shutdown."},
}

var HistogramDefs = []HistogramDef{
	{ID: edgeauth.MetricAccessLatency, Name: "edgeauth_access_latency_seconds", Help: "Access guard latency."},
}

// UpperBounds are the finite bucket bounds in seconds. The last engine bucket is +Inf.
var UpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters without native histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// AuditDroppedName is the counter for audit events that never reached the sink.
const AuditDroppedName = "edgeauth_audit_dropped_total"

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
