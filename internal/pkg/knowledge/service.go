// Package knowledge answers questions over a user's ingested documents.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/entitlements"
	"github.com/queryhub/QueryHub/internal/pkg/llm"
	metrics "github.com/queryhub/QueryHub/internal/pkg/metrics/counter"
	"github.com/queryhub/QueryHub/internal/pkg/vectorsearch"
)

// ErrQueryQuotaExceeded rejects queries past the plan's daily allowance.
var ErrQueryQuotaExceeded = errors.New("daily query quota exceeded")

// ErrDocumentQuotaExceeded rejects new documents past the plan's limit.
var ErrDocumentQuotaExceeded = errors.New("document quota exceeded")

const answerSystemPrompt = "You answer questions using only the provided context documents. " +
	"If the context does not contain the answer, say so plainly. Keep answers short."

// Answer is the result of one LLM-backed query.
type Answer struct {
	Text    string                `json:"text"`
	Sources []vectorsearch.Result `json:"sources"`
}

// Service owns document CRUD, similarity search and LLM-backed querying for
// one knowledge base per user.
type Service struct {
	documents repository.DocumentRepository
	users     repository.UserRepository
	searcher  *vectorsearch.Searcher
	client    llm.Client
	embedder  vectorsearch.Embedder

	// counter hooks, swappable in tests
	addUserQuery     func(userID uint) (int64, error)
	addDocumentQuery func(documentID uint) error
}

func NewService(documents repository.DocumentRepository, users repository.UserRepository, client llm.Client) *Service {
	return &Service{
		documents:        documents,
		users:            users,
		searcher:         vectorsearch.NewSearcher(documents),
		client:           client,
		embedder:         vectorsearch.LocalEmbedder{},
		addUserQuery:     metrics.AddUserQuery,
		addDocumentQuery: metrics.AddDocumentQuery,
	}
}

// AddDocument embeds and stores a manually submitted document, enforcing the
// plan's document quota.
func (s *Service) AddDocument(userID uint, title, content string) (*models.KnowledgeDocument, error) {
	settings, err := s.users.GetOrCreateSettings(userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	count, err := s.documents.CountByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	quota := entitlements.DocumentQuota(entitlements.NormalizePlan(settings.Plan))
	if count >= quota {
		return nil, fmt.Errorf("%w: %d/%d on plan %s", ErrDocumentQuotaExceeded, count, quota, settings.Plan)
	}

	vector, err := vectorsearch.EncodeVector(s.embedder.Embed(content))
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}

	doc := &models.KnowledgeDocument{
		UUID:          uuid.New().String(),
		UserID:        userID,
		Title:         title,
		Content:       content,
		EmbeddingJSON: vector,
	}
	if err := s.documents.Create(doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	return doc, nil
}

// Search ranks the user's documents against the query text.
func (s *Service) Search(userID uint, query string, topK int) ([]vectorsearch.Result, error) {
	return s.searcher.Search(userID, query, topK)
}

// Query runs a quota-checked, retrieval-grounded LLM query. The top-ranked
// documents form the model's context; each one's query counter is bumped.
func (s *Service) Query(ctx context.Context, userID uint, question string) (*Answer, error) {
	settings, err := s.users.GetOrCreateSettings(userID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	used, err := s.addUserQuery(userID)
	if err != nil {
		// Counting failures must not take queries down with them.
		log.Warnf("[Knowledge] query counter unavailable: %v", err)
	} else if quota := entitlements.DailyQueryQuota(entitlements.NormalizePlan(settings.Plan)); used > quota {
		return nil, fmt.Errorf("%w: %d/%d on plan %s", ErrQueryQuotaExceeded, used, quota, settings.Plan)
	}

	sources, err := s.searcher.Search(userID, question, vectorsearch.DefaultTopK)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	for _, src := range sources {
		if err := s.addDocumentQuery(src.Document.ID); err != nil {
			// Fall back to a direct database increment.
			if dbErr := s.documents.IncrementQueryCount([]uint{src.Document.ID}); dbErr != nil {
				log.Warnf("[Knowledge] failed to count query for document %d: %v", src.Document.ID, dbErr)
			}
		}
	}

	text, err := s.client.Complete(ctx, llm.CompletionRequest{
		System: answerSystemPrompt,
		Prompt: buildQueryPrompt(question, sources),
	})
	if err != nil {
		return nil, fmt.Errorf("llm query failed: %w", err)
	}

	return &Answer{Text: text, Sources: sources}, nil
}

func buildQueryPrompt(question string, sources []vectorsearch.Result) string {
	var prompt strings.Builder
	if len(sources) == 0 {
		prompt.WriteString("No context documents are available.\n")
	} else {
		prompt.WriteString("Context documents:\n")
		for i, src := range sources {
			fmt.Fprintf(&prompt, "[%d] %s\n%s\n\n", i+1, src.Document.Title, src.Document.Content)
		}
	}
	fmt.Fprintf(&prompt, "Question: %s", question)
	return prompt.String()
}
