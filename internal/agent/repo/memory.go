package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
)

// MemoryConversationRepository keeps conversations in process memory. It is
// used when no Redis URL is configured; history dies with the process.
type MemoryConversationRepository struct {
	mu          sync.Mutex
	maxMessages int
	convs       map[string][]*schema.Message
}

func NewMemoryConversationRepository(maxMessages int) *MemoryConversationRepository {
	return &MemoryConversationRepository{maxMessages: maxMessages, convs: make(map[string][]*schema.Message)}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, conversationID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := append(r.convs[conversationID], message)
	if r.maxMessages > 0 && len(msgs) > r.maxMessages {
		msgs = msgs[len(msgs)-r.maxMessages:]
	}
	r.convs[conversationID] = msgs
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]*schema.Message, len(r.convs[conversationID]))
	copy(msgs, r.convs[conversationID])
	return &model.ConversationHistory{ConversationID: conversationID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs[conversationID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
