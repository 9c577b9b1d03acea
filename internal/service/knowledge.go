package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// ListAgents returns the public descriptions of every agent.
func (s *Service) ListAgents() []domain.AgentSummary {
	all := s.agents.All()
	out := make([]domain.AgentSummary, 0, len(all))
	for _, a := range all {
		out = append(out, domain.AgentSummary{
			ID:           a.ID,
			Name:         a.Name,
			Description:  a.Description,
			Icon:         a.Icon,
			Color:        a.Color,
			Capabilities: a.Capabilities,
		})
	}
	return out
}

// IngestFile extracts, chunks and stores an uploaded file.
func (s *Service) IngestFile(ctx context.Context, filename string, content []byte) (*domain.KnowledgeDocument, error) {
	if filename == "" {
		return nil, invalidf("No filename provided")
	}
	doc, err := s.ingester.IngestFile(filename, content)
	if err != nil {
		return nil, err
	}
	return s.saveDocument(ctx, doc)
}

// ScrapeURL fetches, cleans, chunks and stores a web page.
func (s *Service) ScrapeURL(ctx context.Context, rawURL string) (*domain.KnowledgeDocument, error) {
	doc, err := s.ingester.ScrapeURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.saveDocument(ctx, doc)
}

func (s *Service) saveDocument(ctx context.Context, doc *domain.KnowledgeDocument) (*domain.KnowledgeDocument, error) {
	doc.ID = newID("kd_")
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if s.store != nil {
		if err := s.store.CreateKnowledgeDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to save knowledge document: %w", err)
		}
	}
	s.logger.Info("knowledge document ingested",
		zap.String("doc_id", doc.ID),
		zap.String("source_type", doc.SourceType),
		zap.Int("chunks", doc.ChunkCount))
	return doc, nil
}
