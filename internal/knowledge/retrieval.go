// Package knowledge retrieves ranked context for agent prompts and ingests knowledge documents.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/adapter/llm"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/metrics"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/tools"
)

const (
	// CharsPerToken approximates the token budget in characters.
	CharsPerToken = 4

	maxPassageChars = 1000
	maxKeywords     = 3
	keywordMsgChars = 500
)

const extractPrompt = `Extract 1-3 search keywords from the user's message for searching a knowledge base.
Return ONLY the keywords as a comma-separated list, nothing else.

User message: %s

Keywords:`

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true, "were": true,
	"what": true, "how": true, "can": true, "do": true, "i": true, "we": true, "my": true, "our": true,
}

// Sources selects which sources a retrieval consults.
type Sources struct {
	ConfluenceEnabled bool
	Documents         []domain.KnowledgeDocRef
}

// Retriever ranks passages from the wiki and the user's knowledge base.
type Retriever struct {
	llm      llm.Client
	invoker  tools.Invoker
	maxDocs  int
	maxChars int
	logger   *zap.Logger
}

// NewRetriever creates a retriever capped at maxTokens (in CharsPerToken units) and maxDocs per source.
func NewRetriever(client llm.Client, invoker tools.Invoker, maxTokens, maxDocs int, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		llm:      client,
		invoker:  invoker,
		maxDocs:  maxDocs,
		maxChars: maxTokens * CharsPerToken,
		logger:   logger,
	}
}

// Retrieve returns documents relevant to message, best first, within the character budget.
// Source failures are logged and contribute nothing.
func (r *Retriever) Retrieve(ctx context.Context, message string, cfg llm.Config, src Sources) []domain.RetrievedDocument {
	keywords := r.ExtractKeywords(ctx, message, cfg)
	if len(keywords) == 0 {
		return []domain.RetrievedDocument{}
	}

	var all []domain.RetrievedDocument
	if src.ConfluenceEnabled {
		docs, err := r.SearchConfluence(ctx, keywords)
		if err != nil {
			r.logger.Warn("confluence search failed", zap.Strings("keywords", keywords), zap.Error(err))
		}
		all = append(all, docs...)
	}
	if len(src.Documents) > 0 {
		all = append(all, SearchKnowledgeBase(keywords, src.Documents, r.maxDocs)...)
	}

	SortByRelevance(all)
	capped := CapDocuments(all, r.maxChars)
	metrics.RetrievedDocuments.Observe(float64(len(capped)))
	return capped
}

// ExtractKeywords asks the model for up to three search terms, falling back to
// the first non-stop-words of the message.
func (r *Retriever) ExtractKeywords(ctx context.Context, message string, cfg llm.Config) []string {
	if r.llm != nil {
		reply, err := r.llm.Chat(ctx, cfg,
			[]domain.ChatMessage{{Role: domain.RoleUser, Content: fmt.Sprintf(extractPrompt, truncateRunes(message, keywordMsgChars))}},
			llm.Options{Temperature: 0.1, MaxTokens: 50},
		)
		if err == nil {
			var keywords []string
			for _, kw := range strings.Split(strings.TrimSpace(reply), ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					keywords = append(keywords, kw)
				}
			}
			if len(keywords) > maxKeywords {
				keywords = keywords[:maxKeywords]
			}
			return keywords
		}
		r.logger.Warn("keyword extraction failed, using heuristic", zap.Error(err))
	}
	return FallbackKeywords(message)
}

// FallbackKeywords drops stop words and keeps the first three remaining words.
func FallbackKeywords(message string) []string {
	var keywords []string
	for _, w := range strings.Fields(message) {
		if stopWords[strings.ToLower(w)] {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// SearchConfluence queries the wiki search tool and ranks results by position.
func (r *Retriever) SearchConfluence(ctx context.Context, keywords []string) ([]domain.RetrievedDocument, error) {
	if r.invoker == nil {
		return nil, fmt.Errorf("no tool invoker configured")
	}
	res := r.invoker.Execute(ctx, string(domain.ToolConfluenceSearch), map[string]any{
		"query": strings.Join(keywords, " "),
	})
	if res.IsError {
		return nil, fmt.Errorf("confluence_search: %s", res.Content)
	}
	return ParseConfluenceResults(res.Content, r.maxDocs)
}

// ParseConfluenceResults reads a list, or an object with a "results" list, of pages.
// Relevance is 1.0 - 0.15 per rank position.
func ParseConfluenceResults(payload string, maxDocs int) ([]domain.RetrievedDocument, error) {
	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("failed to decode confluence results: %w", err)
	}

	var results []any
	switch v := data.(type) {
	case []any:
		results = v
	case map[string]any:
		results, _ = v["results"].([]any)
	}
	if len(results) > maxDocs {
		results = results[:maxDocs]
	}

	docs := make([]domain.RetrievedDocument, 0, len(results))
	for i, item := range results {
		page, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title := "Untitled"
		if t, ok := page["title"].(string); ok {
			title = t
		}
		body, ok := page["body"].(string)
		if !ok {
			body, _ = page["excerpt"].(string)
		}
		if strings.Contains(body, "<") {
			body = StripHTML(body)
		}
		id := fmt.Sprintf("conf_%d", i)
		if v, ok := page["id"]; ok && v != nil {
			id = fmt.Sprint(v)
		}

		docs = append(docs, domain.RetrievedDocument{
			SourceType: "confluence",
			SourceID:   id,
			SourceName: title,
			Content:    truncatePassage(body),
			Relevance:  1.0 - float64(i)*0.15,
		})
	}
	return docs, nil
}

// SearchKnowledgeBase scores every chunk by the share of keywords it contains
// and keeps each document's best chunk. Documents with no match are dropped.
func SearchKnowledgeBase(keywords []string, docs []domain.KnowledgeDocRef, maxDocs int) []domain.RetrievedDocument {
	if len(keywords) == 0 || len(docs) == 0 {
		return []domain.RetrievedDocument{}
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}

	var out []domain.RetrievedDocument
	for _, doc := range docs {
		bestScore, bestChunk := BestChunk(lowered, doc.ContentChunks)
		if bestScore <= 0 {
			continue
		}
		sourceType := doc.SourceType
		if sourceType == "" {
			sourceType = "file"
		}
		sourceName := doc.SourceName
		if sourceName == "" {
			sourceName = "Unknown"
		}
		out = append(out, domain.RetrievedDocument{
			SourceType: sourceType,
			SourceID:   doc.ID,
			SourceName: sourceName,
			Content:    truncatePassage(bestChunk),
			Relevance:  bestScore,
		})
	}

	SortByRelevance(out)
	if len(out) > maxDocs {
		out = out[:maxDocs]
	}
	return out
}

// BestChunk returns the highest scoring chunk. Keywords must be lower-case.
// Ties keep the earlier chunk.
func BestChunk(keywords []string, chunks []string) (float64, string) {
	denom := float64(len(keywords))
	if denom < 1 {
		denom = 1
	}
	var bestScore float64
	var bestChunk string
	for _, chunk := range chunks {
		lower := strings.ToLower(chunk)
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		if score := float64(matches) / denom; score > bestScore {
			bestScore = score
			bestChunk = chunk
		}
	}
	return bestScore, bestChunk
}

// SortByRelevance sorts docs by descending relevance, keeping source order for ties.
func SortByRelevance(docs []domain.RetrievedDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Relevance > docs[j].Relevance
	})
}

// CapDocuments keeps documents in order until the next one would push the total
// content length past maxChars.
func CapDocuments(docs []domain.RetrievedDocument, maxChars int) []domain.RetrievedDocument {
	capped := make([]domain.RetrievedDocument, 0, len(docs))
	total := 0
	for _, doc := range docs {
		n := utf8.RuneCountInString(doc.Content)
		if total+n > maxChars {
			break
		}
		capped = append(capped, doc)
		total += n
	}
	return capped
}

// FormatContext renders documents as a prompt section. No documents yields "".
func FormatContext(docs []domain.RetrievedDocument) string {
	if len(docs) == 0 {
		return ""
	}
	parts := []string{"## Relevant Knowledge Base Documents\n"}
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("### [%s: %s]\n%s\n", titleCase(doc.SourceType), doc.SourceName, doc.Content))
	}
	return strings.Join(parts, "\n")
}

func truncatePassage(s string) string {
	if utf8.RuneCountInString(s) > maxPassageChars {
		return truncateRunes(s, maxPassageChars) + "..."
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// titleCase upper-cases the first letter of each word and lower-cases the rest.
func titleCase(s string) string {
	r := []rune(strings.ToLower(s))
	start := true
	for i, c := range r {
		if start && c >= 'a' && c <= 'z' {
			r[i] = c - 'a' + 'A'
		}
		start = !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z')
	}
	return string(r)
}
