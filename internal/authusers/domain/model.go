package domain

import "time"

// AuthUser is an end-user account on a project's client-facing auth
// surface. The credential is stored as a bcrypt hash, never replayed
// back to callers.
type AuthUser struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
