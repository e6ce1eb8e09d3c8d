package controllers

import (
	"errors"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/clouddrive"
	"github.com/queryhub/QueryHub/internal/pkg/jobqueue"
	"github.com/queryhub/QueryHub/internal/pkg/knowledge"
	"github.com/queryhub/QueryHub/internal/pkg/llm"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

var (
	llmOnce      sync.Once
	llmSingleton llm.Client
)

// sharedLLMClient returns the process-wide completion client: the hosted
// model with a local model as fallback.
func sharedLLMClient() llm.Client {
	llmOnce.Do(func() {
		llmSingleton = llm.NewFallbackClient(llm.NewAnthropicClient(), llm.NewLocalClient())
	})
	return llmSingleton
}

func knowledgeService() *knowledge.Service {
	factory := repository.GetGlobalFactory()
	return knowledge.NewService(factory.GetDocumentRepository(), factory.GetUserRepository(), sharedLLMClient())
}

type addDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type ingestRequest struct {
	Provider string `json:"provider"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

// HandleListDocuments returns the caller's knowledge base documents.
func HandleListDocuments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	docs, err := repository.GetGlobalFactory().GetDocumentRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		log.Errorf("document listing failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Document listing failed")
	}
	return c.JSON(fiber.Map{"documents": docs, "total": len(docs)})
}

// HandleAddDocument stores a manually submitted document.
func HandleAddDocument(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var req addDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}
	if req.Title == "" || req.Content == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Title and content are required")
	}

	doc, err := knowledgeService().AddDocument(userCtx.UserID, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, knowledge.ErrDocumentQuotaExceeded) {
			return jsonError(c, fiber.StatusForbidden, "quota_exceeded", "Document quota for your plan is exhausted")
		}
		log.Errorf("document creation failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Document creation failed")
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

// HandleDeleteDocument removes one of the caller's documents.
func HandleDeleteDocument(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	docRepo := repository.GetGlobalFactory().GetDocumentRepository()
	doc, err := docRepo.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Document not found")
		}
		log.Errorf("document lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Document deletion failed")
	}
	if doc.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Document not found")
	}

	if err := docRepo.Delete(doc.ID); err != nil {
		log.Errorf("document deletion failed for %d: %v", doc.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Document deletion failed")
	}
	return c.JSON(fiber.Map{"message": "Document deleted"})
}

// HandleSearchDocuments ranks the caller's documents against a query string.
func HandleSearchDocuments(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var req searchRequest
	if err := c.BodyParser(&req); err != nil || req.Query == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Missing query")
	}

	results, err := knowledgeService().Search(userCtx.UserID, req.Query, req.TopK)
	if err != nil {
		log.Errorf("search failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Search failed")
	}
	return c.JSON(fiber.Map{"results": results})
}

// HandleQueryKnowledgeBase answers a question with the LLM grounded in the
// caller's top-ranked documents.
func HandleQueryKnowledgeBase(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var req queryRequest
	if err := c.BodyParser(&req); err != nil || req.Question == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Missing question")
	}

	answer, err := knowledgeService().Query(c.Context(), userCtx.UserID, req.Question)
	if err != nil {
		if errors.Is(err, knowledge.ErrQueryQuotaExceeded) {
			return jsonError(c, fiber.StatusTooManyRequests, "quota_exceeded", "Daily query quota for your plan is exhausted")
		}
		log.Errorf("query failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Query failed")
	}
	return c.JSON(answer)
}

// HandleListConnections returns the caller's linked cloud storage accounts.
func HandleListConnections(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	conns, err := repository.GetGlobalFactory().GetConnectionRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		log.Errorf("connection listing failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Connection listing failed")
	}
	return c.JSON(fiber.Map{"connections": conns})
}

// HandleDeleteConnection unlinks a cloud storage account.
func HandleDeleteConnection(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid connection id")
	}

	connRepo := repository.GetGlobalFactory().GetConnectionRepository()
	conn, err := connRepo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Connection not found")
		}
		log.Errorf("connection lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Connection removal failed")
	}
	if conn.UserID != userCtx.UserID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Connection not found")
	}

	if err := connRepo.Delete(conn.ID); err != nil {
		log.Errorf("connection removal failed for %d: %v", conn.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Connection removal failed")
	}
	return c.JSON(fiber.Map{"message": "Connection removed"})
}

// HandleListDriveFiles lists ingestible files from a linked cloud account.
func HandleListDriveFiles(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	provider := c.Params("provider")
	conn, err := repository.GetGlobalFactory().GetConnectionRepository().GetByUserAndProvider(userCtx.UserID, provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No connection for this provider")
		}
		log.Errorf("connection lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "File listing failed")
	}
	if conn.TokenExpired() {
		return jsonError(c, fiber.StatusUnauthorized, "token_expired", "Cloud connection expired, please reconnect")
	}

	drive, err := clouddrive.ForProvider(provider)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Unknown provider")
	}
	accessToken, err := conn.PlainAccessToken()
	if err != nil {
		log.Errorf("connection token unsealing failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "File listing failed")
	}
	files, err := drive.ListFiles(c.Context(), accessToken)
	if err != nil {
		log.Errorf("file listing failed for provider %s: %v", provider, err)
		return jsonError(c, fiber.StatusBadGateway, "upstream_error", "Cloud provider request failed")
	}

	return c.JSON(fiber.Map{"files": files})
}

// HandleIngestFile queues a background ingestion of one cloud file into the
// caller's knowledge base.
func HandleIngestFile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var req ingestRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}
	if req.Provider == "" || req.FileID == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Provider and file_id are required")
	}
	if _, err := clouddrive.ForProvider(req.Provider); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Unknown provider")
	}
	if _, err := repository.GetGlobalFactory().GetConnectionRepository().GetByUserAndProvider(userCtx.UserID, req.Provider); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No connection for this provider")
		}
		log.Errorf("connection lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Ingestion failed")
	}

	payload := jobqueue.DocumentIngestionJobPayload{
		UserID:   userCtx.UserID,
		Provider: req.Provider,
		FileID:   req.FileID,
		FileName: req.FileName,
	}
	job, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeDocumentIngestion, payload.ToMap())
	if err != nil {
		log.Errorf("ingestion enqueue failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Ingestion failed")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  string(job.Status),
		"message": "Ingestion queued",
	})
}
