package model

import "time"

// ConversationRole identifies the speaker of one chat message.
type ConversationRole string

// Conversation role values.
const (
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
	RoleSystem    ConversationRole = "system"
)

// ConversationStatus is the lifecycle state of a ConversationSession.
type ConversationStatus string

// Conversation status values.
const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
	ConversationAbandoned ConversationStatus = "abandoned"
)

// Message is one turn in a ConversationSession.
type Message struct {
	Role      ConversationRole `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
}

// ConversationSession is the conversation agent's (C6) unit of state.
// WorkflowID is a weak reference: set only once the draft is promoted to a
// persisted workflow. Mutated only by C6.
type ConversationSession struct {
	ID            string             `json:"id"`
	WorkflowID    string             `json:"workflow_id,omitempty"`
	Messages      []Message          `json:"messages"`
	WorkflowDraft Graph              `json:"workflow_draft"`
	Status        ConversationStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ConversationFilter narrows a conversation listing.
type ConversationFilter struct {
	Status ConversationStatus
	Skip   int
	Limit  int
}
