package models

import "time"

// UserUsage aggregates completed runs for one initiating user
type UserUsage struct {
	UserID   uint   `json:"user_id"`
	MemberID string `json:"member_id"`
	Runs     int    `json:"runs"`
	Messages int    `json:"messages"`
}

// UsageReport represents a periodic report of generation activity
type UsageReport struct {
	GeneratedAt    time.Time   `json:"generated_at"`
	Period         string      `json:"period"` // "daily" or "weekly"
	Since          time.Time   `json:"since"`
	TotalRuns      int         `json:"total_runs"`
	TotalMessages  int         `json:"total_messages"`
	AvgQueryTimeMs int64       `json:"avg_query_time_ms"`
	AbandonedRuns  int         `json:"abandoned_runs"`
	TopUsers       []UserUsage `json:"top_users"`
}
