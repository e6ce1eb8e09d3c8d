package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/internal/pkg/clouddrive"
)

type fakeConnRepo struct {
	conn *models.CloudConnection
}

func (f *fakeConnRepo) Upsert(conn *models.CloudConnection) error { return nil }
func (f *fakeConnRepo) GetByID(id uint) (*models.CloudConnection, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeConnRepo) GetByUserAndProvider(userID uint, provider string) (*models.CloudConnection, error) {
	if f.conn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.conn, nil
}
func (f *fakeConnRepo) GetByUserID(userID uint) ([]models.CloudConnection, error) { return nil, nil }
func (f *fakeConnRepo) Delete(id uint) error                                      { return nil }

type fakeDocRepo struct {
	docs []*models.KnowledgeDocument
}

func (f *fakeDocRepo) Create(doc *models.KnowledgeDocument) error {
	doc.ID = uint(len(f.docs) + 1)
	f.docs = append(f.docs, doc)
	return nil
}
func (f *fakeDocRepo) GetByUUID(uuid string) (*models.KnowledgeDocument, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeDocRepo) GetByUserID(userID uint) ([]models.KnowledgeDocument, error) { return nil, nil }
func (f *fakeDocRepo) GetBySource(userID uint, provider, fileID string) (*models.KnowledgeDocument, error) {
	for _, d := range f.docs {
		if d.UserID == userID && d.SourceProvider == provider && d.SourceFileID == fileID {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeDocRepo) Update(doc *models.KnowledgeDocument) error { return nil }
func (f *fakeDocRepo) Delete(id uint) error                       { return nil }
func (f *fakeDocRepo) CountByUserID(userID uint) (int64, error)   { return int64(len(f.docs)), nil }
func (f *fakeDocRepo) IncrementQueryCount(ids []uint) error       { return nil }

type fakeUserRepo struct {
	settings *models.UserSettings
}

func (f *fakeUserRepo) Create(user *models.User) error               { return nil }
func (f *fakeUserRepo) GetByID(id uint) (*models.User, error)        { return nil, gorm.ErrRecordNotFound }
func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) GetByActivationToken(token string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error) {
	return nil, nil, gorm.ErrRecordNotFound
}
func (f *fakeUserRepo) Update(user *models.User) error              { return nil }
func (f *fakeUserRepo) Delete(id uint) error                        { return nil }
func (f *fakeUserRepo) List(offset, limit int) ([]models.User, error) { return nil, nil }
func (f *fakeUserRepo) Count() (int64, error)                       { return 0, nil }
func (f *fakeUserRepo) GetOrCreateSettings(userID uint) (*models.UserSettings, error) {
	return f.settings, nil
}
func (f *fakeUserRepo) SaveSettings(settings *models.UserSettings) error { return nil }

type fakeDrive struct {
	content []byte
	err     error
}

func (f *fakeDrive) ListFiles(ctx context.Context, accessToken string) ([]clouddrive.File, error) {
	return nil, nil
}
func (f *fakeDrive) DownloadFile(ctx context.Context, accessToken, fileID string) ([]byte, error) {
	return f.content, f.err
}

func newIngestFixture(content string) (*IngestProcessor, *fakeDocRepo) {
	docs := &fakeDocRepo{}
	p := NewIngestProcessor(
		&fakeConnRepo{conn: &models.CloudConnection{UserID: 1, Provider: models.CloudProviderGoogle, AccessToken: "tok"}},
		docs,
		&fakeUserRepo{settings: &models.UserSettings{UserID: 1, Plan: "free"}},
		nil,
		nil,
	)
	p.driveFor = func(provider string) (clouddrive.Drive, error) {
		return &fakeDrive{content: []byte(content)}, nil
	}
	return p, docs
}

func TestIngestCreatesDocument(t *testing.T) {
	p, docs := newIngestFixture("document body about deployments")

	err := p.Process(context.Background(), &DocumentIngestionJobPayload{
		UserID:   1,
		Provider: models.CloudProviderGoogle,
		FileID:   "f1",
		FileName: "deploy.txt",
	})
	assert.NoError(t, err)
	assert.Len(t, docs.docs, 1)

	doc := docs.docs[0]
	assert.Equal(t, "deploy.txt", doc.Title)
	assert.Equal(t, "document body about deployments", doc.Content)
	assert.Equal(t, models.CloudProviderGoogle, doc.SourceProvider)
	assert.NotEmpty(t, doc.UUID)
	assert.NotEmpty(t, doc.EmbeddingJSON)
}

func TestIngestReusesExistingSourceRow(t *testing.T) {
	p, docs := newIngestFixture("first version")
	payload := &DocumentIngestionJobPayload{
		UserID:   1,
		Provider: models.CloudProviderGoogle,
		FileID:   "f1",
		FileName: "notes.txt",
	}

	assert.NoError(t, p.Process(context.Background(), payload))
	p.driveFor = func(provider string) (clouddrive.Drive, error) {
		return &fakeDrive{content: []byte("second version")}, nil
	}
	assert.NoError(t, p.Process(context.Background(), payload))

	assert.Len(t, docs.docs, 1)
	assert.Equal(t, "second version", docs.docs[0].Content)
}

func TestIngestQuotaExceeded(t *testing.T) {
	p, docs := newIngestFixture("content")
	// Fill the free plan quota.
	for i := 0; i < 50; i++ {
		docs.docs = append(docs.docs, &models.KnowledgeDocument{UserID: 1})
	}

	err := p.Process(context.Background(), &DocumentIngestionJobPayload{
		UserID: 1, Provider: models.CloudProviderGoogle, FileID: "f1", FileName: "x.txt",
	})
	assert.ErrorIs(t, err, ErrDocumentQuotaExceeded)
}

func TestIngestExpiredToken(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	docs := &fakeDocRepo{}
	p := NewIngestProcessor(
		&fakeConnRepo{conn: &models.CloudConnection{UserID: 1, Provider: models.CloudProviderGoogle, ExpiresAt: &expired}},
		docs,
		&fakeUserRepo{settings: &models.UserSettings{UserID: 1, Plan: "free"}},
		nil,
		nil,
	)

	err := p.Process(context.Background(), &DocumentIngestionJobPayload{
		UserID: 1, Provider: models.CloudProviderGoogle, FileID: "f1", FileName: "x.txt",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestIngestDownloadFailure(t *testing.T) {
	p, _ := newIngestFixture("")
	p.driveFor = func(provider string) (clouddrive.Drive, error) {
		return &fakeDrive{err: errors.New("upstream 500")}, nil
	}

	err := p.Process(context.Background(), &DocumentIngestionJobPayload{
		UserID: 1, Provider: models.CloudProviderGoogle, FileID: "f1", FileName: "x.txt",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 500")
}
