package chat

import "time"

// Roles recorded on an Exchange.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Exchange persists a single conversational turn. Exchanges are append-only:
// once written they are trimmed or exported, never mutated.
type Exchange struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	TurnIndex   int64     `json:"turnIndex"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	ModelUsed   string    `json:"modelUsed"`
	PersonaUsed string    `json:"personaUsed"`
	CreatedAt   time.Time `json:"createdAt"`
}
