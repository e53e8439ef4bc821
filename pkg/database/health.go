package database

import (
	"context"
	"time"
)

// HealthStatus reports liveness and connection counters for the embedded
// database, surfaced through the supervisor health endpoint.
type HealthStatus struct {
	Status          string `json:"status"`
	ResponseTime    int64  `json:"response_time_ms"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
}

// Health verifies the database with a query round-trip. A bare ping can
// pass on a handle whose backing file is no longer usable, so this runs
// an actual statement through the driver.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()

	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start).Milliseconds(),
		}, err
	}

	stats := c.db.Stats()
	return &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start).Milliseconds(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
	}, nil
}
