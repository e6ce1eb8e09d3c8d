package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/clouddrive"
	"github.com/queryhub/QueryHub/internal/pkg/entitlements"
	"github.com/queryhub/QueryHub/internal/pkg/objstore"
	"github.com/queryhub/QueryHub/internal/pkg/vectorsearch"
)

// ErrDocumentQuotaExceeded aborts ingestion when the plan's document limit
// is reached. Not retryable.
var ErrDocumentQuotaExceeded = errors.New("document quota exceeded")

// IngestProcessor pulls a file from a linked cloud drive, embeds its text
// and stores it as a knowledge document. Re-ingesting the same source file
// overwrites the stored content and re-embeds it.
type IngestProcessor struct {
	connections repository.ConnectionRepository
	documents   repository.DocumentRepository
	users       repository.UserRepository
	embedder    vectorsearch.Embedder
	driveFor    func(provider string) (clouddrive.Drive, error)
	blobs       *objstore.Client // nil when object storage is disabled
	blobConfig  *objstore.Config
}

func NewIngestProcessor(
	connections repository.ConnectionRepository,
	documents repository.DocumentRepository,
	users repository.UserRepository,
	blobs *objstore.Client,
	blobConfig *objstore.Config,
) *IngestProcessor {
	return &IngestProcessor{
		connections: connections,
		documents:   documents,
		users:       users,
		embedder:    vectorsearch.LocalEmbedder{},
		driveFor:    clouddrive.ForProvider,
		blobs:       blobs,
		blobConfig:  blobConfig,
	}
}

// Process ingests one file from the payload's provider into the user's
// knowledge base.
func (p *IngestProcessor) Process(ctx context.Context, payload *DocumentIngestionJobPayload) error {
	conn, err := p.connections.GetByUserAndProvider(payload.UserID, payload.Provider)
	if err != nil {
		return fmt.Errorf("load %s connection for user %d: %w", payload.Provider, payload.UserID, err)
	}
	if conn.TokenExpired() {
		return fmt.Errorf("%s access token expired for user %d, reconnect required", payload.Provider, payload.UserID)
	}

	if err := p.checkQuota(payload.UserID); err != nil {
		return err
	}

	drive, err := p.driveFor(payload.Provider)
	if err != nil {
		return err
	}
	accessToken, err := conn.PlainAccessToken()
	if err != nil {
		return fmt.Errorf("unseal %s token for user %d: %w", payload.Provider, payload.UserID, err)
	}
	content, err := drive.DownloadFile(ctx, accessToken, payload.FileID)
	if err != nil {
		return fmt.Errorf("download %s from %s: %w", payload.FileID, payload.Provider, err)
	}

	doc, err := p.upsertDocument(payload, string(content))
	if err != nil {
		return err
	}

	p.archiveBlob(ctx, doc, content)

	log.Infof("[Ingest] stored document %s (%s, %d bytes) for user %d", doc.UUID, payload.FileName, len(content), payload.UserID)
	return nil
}

func (p *IngestProcessor) checkQuota(userID uint) error {
	settings, err := p.users.GetOrCreateSettings(userID)
	if err != nil {
		return fmt.Errorf("load settings for user %d: %w", userID, err)
	}
	count, err := p.documents.CountByUserID(userID)
	if err != nil {
		return fmt.Errorf("count documents for user %d: %w", userID, err)
	}

	quota := entitlements.DocumentQuota(entitlements.NormalizePlan(settings.Plan))
	if count >= quota {
		return fmt.Errorf("%w: %d/%d documents on plan %s", ErrDocumentQuotaExceeded, count, quota, settings.Plan)
	}
	return nil
}

// upsertDocument stores the text and its embedding, reusing the existing row
// when the same source file was ingested before.
func (p *IngestProcessor) upsertDocument(payload *DocumentIngestionJobPayload, content string) (*models.KnowledgeDocument, error) {
	vector, err := vectorsearch.EncodeVector(p.embedder.Embed(content))
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}

	existing, err := p.documents.GetBySource(payload.UserID, payload.Provider, payload.FileID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up existing document: %w", err)
	}

	if existing != nil {
		existing.Title = payload.FileName
		existing.Content = content
		existing.EmbeddingJSON = vector
		if err := p.documents.Update(existing); err != nil {
			return nil, fmt.Errorf("update document %s: %w", existing.UUID, err)
		}
		return existing, nil
	}

	doc := &models.KnowledgeDocument{
		UUID:           uuid.New().String(),
		UserID:         payload.UserID,
		Title:          payload.FileName,
		Content:        content,
		SourceProvider: payload.Provider,
		SourceFileID:   payload.FileID,
		EmbeddingJSON:  vector,
	}
	if err := p.documents.Create(doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// archiveBlob stores the raw source bytes in object storage. Best-effort:
// the searchable copy lives in the database, so a storage failure only
// loses the raw original.
func (p *IngestProcessor) archiveBlob(ctx context.Context, doc *models.KnowledgeDocument, content []byte) {
	if p.blobs == nil {
		return
	}

	key := p.blobConfig.DocumentObjectKey(doc.UserID, doc.UUID)
	if err := p.blobs.PutObject(ctx, key, content, "text/plain"); err != nil {
		log.Errorf("[Ingest] failed to archive document %s: %v", doc.UUID, err)
		return
	}
	if doc.ObjectKey != key {
		doc.ObjectKey = key
		if err := p.documents.Update(doc); err != nil {
			log.Errorf("[Ingest] failed to store object key for %s: %v", doc.UUID, err)
		}
	}
}
