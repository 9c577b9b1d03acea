package store

import (
	"context"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// Store persists pending actions, tool audit records and knowledge documents.
// Getters return (nil, nil) when the row does not exist.
type Store interface {
	// Pending action operations
	CreatePendingAction(ctx context.Context, action *domain.PendingAction) error
	GetPendingAction(ctx context.Context, actionID string) (*domain.PendingAction, error)
	TransitionPendingAction(ctx context.Context, actionID string, from, to domain.ActionStatus, result *string) (bool, error)
	ListPendingActions(ctx context.Context, status domain.ActionStatus) ([]domain.PendingAction, error)

	// Tool execution operations
	RecordToolExecution(ctx context.Context, requestID string, agentID domain.AgentID, exec *domain.ToolExecution) error
	ListToolExecutions(ctx context.Context, requestID string) ([]domain.ToolExecution, error)

	// Knowledge document operations
	CreateKnowledgeDocument(ctx context.Context, doc *domain.KnowledgeDocument) error
	GetKnowledgeDocument(ctx context.Context, docID string) (*domain.KnowledgeDocument, error)
	ListKnowledgeDocuments(ctx context.Context) ([]domain.KnowledgeDocument, error)

	Close() error
}
