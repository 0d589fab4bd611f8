package domain

import "time"

// ChatTurn represents one user message and the system's answer, persisted
// as an immutable record scoped by (leader, session, user).
type ChatTurn struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	LeaderID   string    `json:"leader_id"`
	SessionID  string    `json:"session_id"`
	UserInput  string    `json:"user_input"`
	AIResponse string    `json:"ai_response"`
	Timestamp  time.Time `json:"timestamp"`
}

// ChatRequest is the request to send a chat message
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
	Streaming bool   `json:"streaming,omitempty"`
}

// ChatResponse is the response from a batch chat message
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	TurnID    string `json:"turn_id,omitempty"`
}

// StreamFrame is one event in a streaming chat response. Frames with
// Done=false carry the accumulated partial answer; the single final frame
// carries the full citation-annotated text and the session id.
type StreamFrame struct {
	Content   string `json:"content"`
	Done      bool   `json:"done"`
	SessionID string `json:"session_id,omitempty"`
}

// ClearChatResponse reports how many turns a clear-session call removed
type ClearChatResponse struct {
	DeletedCount int `json:"deleted_count"`
}

// SuggestionRequest is the request for follow-up question candidates
type SuggestionRequest struct {
	Message string `json:"message" binding:"required"`
}

// SuggestionResponse carries 2-3 follow-up question candidates
type SuggestionResponse struct {
	Suggestions []string `json:"suggestions"`
}
