package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/internal/pkg/llm"
	"github.com/queryhub/QueryHub/internal/pkg/vectorsearch"
)

type memDocRepo struct {
	docs       []*models.KnowledgeDocument
	counted    []uint
	directIncs []uint
}

func (m *memDocRepo) Create(doc *models.KnowledgeDocument) error {
	doc.ID = uint(len(m.docs) + 1)
	m.docs = append(m.docs, doc)
	return nil
}
func (m *memDocRepo) GetByUUID(uuid string) (*models.KnowledgeDocument, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *memDocRepo) GetByUserID(userID uint) ([]models.KnowledgeDocument, error) {
	out := make([]models.KnowledgeDocument, 0, len(m.docs))
	for _, d := range m.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}
func (m *memDocRepo) GetBySource(userID uint, provider, fileID string) (*models.KnowledgeDocument, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *memDocRepo) Update(doc *models.KnowledgeDocument) error { return nil }
func (m *memDocRepo) Delete(id uint) error                       { return nil }
func (m *memDocRepo) CountByUserID(userID uint) (int64, error) {
	n := int64(0)
	for _, d := range m.docs {
		if d.UserID == userID {
			n++
		}
	}
	return n, nil
}
func (m *memDocRepo) IncrementQueryCount(ids []uint) error {
	m.directIncs = append(m.directIncs, ids...)
	return nil
}

type memUserRepo struct {
	settings *models.UserSettings
}

func (m *memUserRepo) Create(user *models.User) error        { return nil }
func (m *memUserRepo) GetByID(id uint) (*models.User, error) { return nil, gorm.ErrRecordNotFound }
func (m *memUserRepo) GetByEmail(email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *memUserRepo) GetByActivationToken(token string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *memUserRepo) GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error) {
	return nil, nil, gorm.ErrRecordNotFound
}
func (m *memUserRepo) Update(user *models.User) error                 { return nil }
func (m *memUserRepo) Delete(id uint) error                           { return nil }
func (m *memUserRepo) List(offset, limit int) ([]models.User, error)  { return nil, nil }
func (m *memUserRepo) Count() (int64, error)                          { return 0, nil }
func (m *memUserRepo) GetOrCreateSettings(userID uint) (*models.UserSettings, error) {
	return m.settings, nil
}
func (m *memUserRepo) SaveSettings(settings *models.UserSettings) error { return nil }

type echoLLM struct {
	prompt string
	err    error
}

func (e *echoLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	e.prompt = req.Prompt
	if e.err != nil {
		return "", e.err
	}
	return "the answer", nil
}

func newTestService(plan string) (*Service, *memDocRepo, *echoLLM) {
	docs := &memDocRepo{}
	client := &echoLLM{}
	svc := NewService(docs, &memUserRepo{settings: &models.UserSettings{UserID: 1, Plan: plan}}, client)
	queries := int64(0)
	svc.addUserQuery = func(userID uint) (int64, error) {
		queries++
		return queries, nil
	}
	svc.addDocumentQuery = func(documentID uint) error {
		docs.counted = append(docs.counted, documentID)
		return nil
	}
	return svc, docs, client
}

func TestAddDocumentEmbedsContent(t *testing.T) {
	svc, docs, _ := newTestService("free")

	doc, err := svc.AddDocument(1, "runbook", "restart the ingest worker first")
	assert.NoError(t, err)
	assert.NotEmpty(t, doc.UUID)
	assert.NotEmpty(t, doc.EmbeddingJSON)
	assert.Len(t, docs.docs, 1)

	vec, err := vectorsearch.DecodeVector(doc.EmbeddingJSON)
	assert.NoError(t, err)
	assert.Len(t, vec, vectorsearch.Dimensions)
}

func TestAddDocumentQuota(t *testing.T) {
	svc, docs, _ := newTestService("free")
	for i := 0; i < 50; i++ {
		docs.docs = append(docs.docs, &models.KnowledgeDocument{UserID: 1})
	}

	_, err := svc.AddDocument(1, "overflow", "content")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestQueryBuildsContextFromTopDocuments(t *testing.T) {
	svc, _, client := newTestService("pro")
	_, err := svc.AddDocument(1, "deploy guide", "deployments run through the release pipeline")
	assert.NoError(t, err)
	_, err = svc.AddDocument(1, "billing notes", "invoices are sent monthly")
	assert.NoError(t, err)

	answer, err := svc.Query(context.Background(), 1, "how do deployments run")
	assert.NoError(t, err)
	assert.Equal(t, "the answer", answer.Text)
	assert.NotEmpty(t, answer.Sources)
	assert.Contains(t, client.prompt, "deploy guide")
	assert.Contains(t, client.prompt, "Question: how do deployments run")
}

func TestQueryCountsDocumentHits(t *testing.T) {
	svc, docs, _ := newTestService("pro")
	_, err := svc.AddDocument(1, "doc", "some searchable content here")
	assert.NoError(t, err)

	_, err = svc.Query(context.Background(), 1, "searchable content")
	assert.NoError(t, err)
	assert.NotEmpty(t, docs.counted)
}

func TestQueryQuotaExceeded(t *testing.T) {
	svc, _, _ := newTestService("free")
	calls := int64(0)
	svc.addUserQuery = func(userID uint) (int64, error) {
		calls++
		return 26, nil // past the free plan's 25
	}

	_, err := svc.Query(context.Background(), 1, "anything")
	assert.ErrorIs(t, err, ErrQueryQuotaExceeded)
}

func TestQueryCounterFailureFallsBackToDirectIncrement(t *testing.T) {
	svc, docs, _ := newTestService("pro")
	_, err := svc.AddDocument(1, "doc", "content to find")
	assert.NoError(t, err)
	svc.addDocumentQuery = func(documentID uint) error { return errors.New("redis down") }

	_, err = svc.Query(context.Background(), 1, "content to find")
	assert.NoError(t, err)
	assert.NotEmpty(t, docs.directIncs)
}

func TestQueryLLMFailureSurfaced(t *testing.T) {
	svc, _, client := newTestService("pro")
	client.err = errors.New("upstream 529")

	_, err := svc.Query(context.Background(), 1, "anything")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 529")
}
