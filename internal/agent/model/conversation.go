package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository persists the user/assistant turns of a chat session.
// Tool calls and tool results are per-turn state and are not stored.
type ConversationRepository interface {
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)
	ClearHistory(ctx context.Context, conversationID string) error
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}
