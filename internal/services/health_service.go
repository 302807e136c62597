package services

import (
	"context"
	"runtime"
	"time"
)

// HealthStatus represents the health status response
type HealthStatus struct {
	Status        string     `json:"status"`
	Timestamp     time.Time  `json:"timestamp"`
	Version       string     `json:"version"`
	Uptime        float64    `json:"uptime_seconds"`
	GoVersion     string     `json:"go_version"`
	DatasetLoaded bool       `json:"dataset_loaded"`
	LoadedAt      *time.Time `json:"loaded_at,omitempty"`
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	accidents *AccidentService
	startTime time.Time
}

// NewHealthService creates a health service reporting on accidents
func NewHealthService(version string, accidents *AccidentService) *HealthService {
	return &HealthService{version: version, accidents: accidents, startTime: time.Now()}
}

// HealthCheck returns "ok" once a dataset is loaded and "loading" before.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "loading",
		Timestamp: time.Now(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Seconds(),
		GoVersion: runtime.Version(),
	}
	if hs.accidents != nil {
		if loaded, at := hs.accidents.Loaded(); loaded {
			status.Status = "ok"
			status.DatasetLoaded = true
			status.LoadedAt = &at
		}
	}
	return status
}
