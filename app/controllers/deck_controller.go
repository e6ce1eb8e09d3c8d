package controllers

import (
	"bufio"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/jobqueue"
	"github.com/queryhub/QueryHub/internal/pkg/progress"
	"github.com/queryhub/QueryHub/internal/pkg/usercontext"
)

const (
	deckDefaultSlides = 5
	deckMaxSlides     = 20
	deckDefaultLimit  = 20
	deckMaxLimit      = 100
)

type createDeckRequest struct {
	Topic      string `json:"topic"`
	SlideCount int    `json:"slide_count"`
}

// HandleCreateDeckJob creates a slide-deck generation job and queues it for
// the background worker. The response carries the job UUID for polling and
// the SSE progress stream.
func HandleCreateDeckJob(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	var req createDeckRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Invalid request body")
	}
	if req.Topic == "" || len(req.Topic) > 255 {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Topic is required and limited to 255 characters")
	}
	if req.SlideCount == 0 {
		req.SlideCount = deckDefaultSlides
	}
	if req.SlideCount < 1 || req.SlideCount > deckMaxSlides {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Slide count must be between 1 and 20")
	}

	job := &models.GenerationJob{
		UUID:       uuid.New().String(),
		UserID:     userCtx.UserID,
		Topic:      req.Topic,
		SlideCount: req.SlideCount,
		Status:     models.JobStatusPending,
	}
	if err := repository.GetGlobalFactory().GetJobRepository().Create(job); err != nil {
		log.Errorf("deck job creation failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Deck job creation failed")
	}

	payload := jobqueue.DeckGenerationJobPayload{
		JobID:   job.ID,
		JobUUID: job.UUID,
		UserID:  job.UserID,
	}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeDeckGeneration, payload.ToMap()); err != nil {
		log.Errorf("deck job enqueue failed for job %s: %v", job.UUID, err)
		job.Status = models.JobStatusFailed
		job.ErrorMessage = "could not queue generation"
		if uerr := repository.GetGlobalFactory().GetJobRepository().Update(job); uerr != nil {
			log.Errorf("deck job failure update failed for job %s: %v", job.UUID, uerr)
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Deck job creation failed")
	}

	return c.Status(fiber.StatusAccepted).JSON(job)
}

// HandleListDeckJobs returns the caller's generation jobs, newest first.
func HandleListDeckJobs(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	limit, offset := parsePagination(c, deckDefaultLimit, deckMaxLimit)
	jobs, err := repository.GetGlobalFactory().GetJobRepository().GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		log.Errorf("deck job listing failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Deck job listing failed")
	}
	return c.JSON(fiber.Map{"jobs": jobs, "limit": limit, "offset": offset})
}

// HandleGetDeckJob returns one job including its generated slides so far.
func HandleGetDeckJob(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	job, ok := loadOwnDeckJob(c, userCtx.UserID, c.Params("uuid"))
	if !ok {
		return nil
	}

	slides, err := job.Slides()
	if err != nil {
		log.Errorf("slide decode failed for job %s: %v", job.UUID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Deck job lookup failed")
	}

	return c.JSON(fiber.Map{"job": job, "slides": slides})
}

// HandleCancelDeckJob requests cancellation of a running generation. The
// worker checks the status between slides and stops at the next boundary.
func HandleCancelDeckJob(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	job, ok := loadOwnDeckJob(c, userCtx.UserID, c.Params("uuid"))
	if !ok {
		return nil
	}
	if job.IsTerminal() {
		return jsonError(c, fiber.StatusConflict, "conflict", "Job already finished")
	}

	job.Status = models.JobStatusCancelled
	if err := repository.GetGlobalFactory().GetJobRepository().Update(job); err != nil {
		log.Errorf("deck job cancellation failed for job %s: %v", job.UUID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Cancellation failed")
	}

	return c.JSON(fiber.Map{"message": "Cancellation requested", "status": job.Status})
}

// HandleDeckProgress streams generation progress as server-sent events until
// the job reaches a terminal state.
func HandleDeckProgress(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	jobUUID := c.Query("job_id")
	if jobUUID == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation", "Missing job_id")
	}
	if _, ok := loadOwnDeckJob(c, userCtx.UserID, jobUUID); !ok {
		return nil
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	relay := progress.NewRelay(repository.GetGlobalFactory().GetJobRepository())
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		relay.Stream(jobUUID, w)
	}))
	return nil
}

// loadOwnDeckJob fetches a job by UUID and hides other users' jobs behind 404.
// When ok is false the error response has already been written.
func loadOwnDeckJob(c *fiber.Ctx, userID uint, jobUUID string) (*models.GenerationJob, bool) {
	job, err := repository.GetGlobalFactory().GetJobRepository().GetByUUID(jobUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = jsonError(c, fiber.StatusNotFound, "not_found", "Job not found")
			return nil, false
		}
		log.Errorf("deck job lookup failed for %s: %v", jobUUID, err)
		_ = jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Deck job lookup failed")
		return nil, false
	}
	if job.UserID != userID {
		_ = jsonError(c, fiber.StatusNotFound, "not_found", "Job not found")
		return nil, false
	}
	return job, true
}
