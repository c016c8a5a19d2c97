package model

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a chat session's transcript. Persisted messages
// carry the store's row id; optimistic messages appended by the controller
// carry a locally generated id. Ids are strictly increasing within a
// session, which is the only ordering messages have.
type Message struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
}
