package session

import "time"

// Session is the server-side anchor of one login. Its presence is what keeps every
// token carrying its id alive.
type Session struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshRecord backs exactly one issued refresh token and is consumed on use.
type RefreshRecord struct {
	SessionID string `json:"sid"`
	Subject   string `json:"sub"`
}
