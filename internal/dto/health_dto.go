package dto

import "time"

// ProbeResult is the outcome of one backend probe.
type ProbeResult struct {
	OK        bool    `json:"ok"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// HealthDetails lists the probes run by a backend health check.
type HealthDetails struct {
	Connection   ProbeResult `json:"connection"`
	Write        ProbeResult `json:"write"`
	EmptyRead    ProbeResult `json:"empty_read"`
	ExistingRead ProbeResult `json:"existing_read"`
}

// HealthStatus is the composite result of a backend health check.
type HealthStatus struct {
	OK        bool          `json:"ok"`
	Status    string        `json:"status"`
	Details   HealthDetails `json:"details"`
	CheckedAt time.Time     `json:"checked_at"`
}

// HealthDashboard is served to operators.
type HealthDashboard struct {
	Status          string        `json:"status"`
	Service         string        `json:"service"`
	Environment     string        `json:"environment"`
	SatelliteStatus string        `json:"satellite_status"`
	UptimeSeconds   int64         `json:"uptime_seconds"`
	LastChecked     *time.Time    `json:"last_checked,omitempty"`
	Backend         *HealthStatus `json:"backend,omitempty"`
}
