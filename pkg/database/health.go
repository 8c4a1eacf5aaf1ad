package database

import (
	"context"
	"time"
)

// HealthStatus reports connectivity plus pressure on both pools. Durations
// are milliseconds so the JSON stays human-readable.
type HealthStatus struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`

	// database/sql pool
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
	WaitDuration    int64 `json:"wait_duration_ms"`
	MaxOpenConns    int   `json:"max_open_conns"`

	// pgx pool
	PgxTotalConns    int32 `json:"pgx_total_conns"`
	PgxIdleConns     int32 `json:"pgx_idle_conns"`
	PgxAcquiredConns int32 `json:"pgx_acquired_conns"`
}

// Health pings the database and returns pool statistics. On ping failure
// the status and the error are both returned so handlers can report the
// degraded state with detail.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()

	if err := c.db.PingContext(ctx); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start).Milliseconds(),
		}, err
	}

	stats := c.db.Stats()
	pgxStats := c.pool.Stat()

	return &HealthStatus{
		Status:           "healthy",
		ResponseTime:     time.Since(start).Milliseconds(),
		OpenConnections:  stats.OpenConnections,
		InUse:            stats.InUse,
		Idle:             stats.Idle,
		WaitCount:        stats.WaitCount,
		WaitDuration:     stats.WaitDuration.Milliseconds(),
		MaxOpenConns:     stats.MaxOpenConnections,
		PgxTotalConns:    pgxStats.TotalConns(),
		PgxIdleConns:     pgxStats.IdleConns(),
		PgxAcquiredConns: pgxStats.AcquiredConns(),
	}, nil
}
