package chat

import "time"

// Turn is the audit record of a finished turn.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Cached    bool      `json:"cached"`
	Rejected  bool      `json:"rejected"`
	Failed    bool      `json:"failed"`
	Tools     []string  `json:"tools,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
