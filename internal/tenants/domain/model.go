package domain

import "time"

// Project is the tenant boundary. Every table, auth user and bucket is
// scoped to exactly one project, and the anon/service keys embedded
// here are the only client-facing credentials for it.
type Project struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	AnonKey    string    `json:"anon_key"`
	ServiceKey string    `json:"service_key"`
	CreatedAt  time.Time `json:"created_at"`
}

const StatusActive = "active"
