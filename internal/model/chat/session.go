package chat

import "time"

// Session captures the routing state for one end user. There is exactly one
// Session per user; it is created lazily on first contact and survives
// history resets.
type Session struct {
	UserID        string    `json:"userId"`
	ActiveModel   string    `json:"activeModel"`
	ActivePersona string    `json:"activePersona"`
	TurnCount     int64     `json:"turnCount"`
	CreatedAt     time.Time `json:"createdAt"`
	LastActiveAt  time.Time `json:"lastActiveAt"`
}
