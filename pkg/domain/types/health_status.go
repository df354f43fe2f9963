package types

// HealthStatus is the read-time classification of a channel's sync freshness.
// It is derived from sync state counters and timestamps and never persisted.
type HealthStatus string

const (
	HealthUnknown  HealthStatus = "unknown"
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthStale    HealthStatus = "stale"
	HealthCritical HealthStatus = "critical"
)

// String returns the string representation of HealthStatus
func (x HealthStatus) String() string {
	return string(x)
}
