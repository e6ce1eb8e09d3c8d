package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/internal/pkg/llm"
)

type fakeJobRepo struct {
	jobs map[string]*models.GenerationJob
	// cancelAfter flips the job to cancelled once this many updates happened
	cancelAfter int
	updates     int
}

func newFakeJobRepo(job *models.GenerationJob) *fakeJobRepo {
	return &fakeJobRepo{jobs: map[string]*models.GenerationJob{job.UUID: job}, cancelAfter: -1}
}

func (f *fakeJobRepo) Create(job *models.GenerationJob) error {
	f.jobs[job.UUID] = job
	return nil
}

func (f *fakeJobRepo) GetByUUID(uuid string) (*models.GenerationJob, error) {
	job, ok := f.jobs[uuid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobRepo) GetByUserID(userID uint, offset, limit int) ([]models.GenerationJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) Update(job *models.GenerationJob) error {
	f.updates++
	stored := f.jobs[job.UUID]
	*stored = *job
	if f.cancelAfter >= 0 && f.updates > f.cancelAfter {
		stored.Status = models.JobStatusCancelled
	}
	return nil
}

type slideLLM struct {
	calls int
	err   error
}

func (s *slideLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf(`{"title": "Slide %d", "content": "point one\npoint two"}`, s.calls), nil
}

func pendingJob(slideCount int) *models.GenerationJob {
	return &models.GenerationJob{
		ID:         1,
		UUID:       "11111111-2222-3333-4444-555555555555",
		UserID:     7,
		Topic:      "container orchestration",
		SlideCount: slideCount,
		Status:     models.JobStatusPending,
	}
}

func TestDeckProcessorCompletesJob(t *testing.T) {
	job := pendingJob(3)
	repo := newFakeJobRepo(job)
	client := &slideLLM{}
	p := NewDeckProcessor(repo, client)

	err := p.Process(context.Background(), &DeckGenerationJobPayload{JobUUID: job.UUID, UserID: job.UserID})
	assert.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 3, client.calls)

	slides, err := job.Slides()
	assert.NoError(t, err)
	assert.Len(t, slides, 3)
	assert.Equal(t, "Slide 1", slides[0].Title)
	assert.Equal(t, 0, slides[0].Index)
	assert.Equal(t, 2, slides[2].Index)
}

func TestDeckProcessorRecordsFailure(t *testing.T) {
	job := pendingJob(3)
	repo := newFakeJobRepo(job)
	p := NewDeckProcessor(repo, &slideLLM{err: errors.New("model unavailable")})

	err := p.Process(context.Background(), &DeckGenerationJobPayload{JobUUID: job.UUID})
	assert.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "model unavailable")
}

func TestDeckProcessorHonorsCancellation(t *testing.T) {
	job := pendingJob(5)
	repo := newFakeJobRepo(job)
	// Cancel after the processing mark plus one slide write.
	repo.cancelAfter = 2
	client := &slideLLM{}
	p := NewDeckProcessor(repo, client)

	err := p.Process(context.Background(), &DeckGenerationJobPayload{JobUUID: job.UUID})
	assert.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, repo.jobs[job.UUID].Status)
	assert.Less(t, client.calls, 5)
}

func TestDeckProcessorSkipsTerminalJob(t *testing.T) {
	job := pendingJob(3)
	job.Status = models.JobStatusCompleted
	repo := newFakeJobRepo(job)
	client := &slideLLM{}
	p := NewDeckProcessor(repo, client)

	err := p.Process(context.Background(), &DeckGenerationJobPayload{JobUUID: job.UUID})
	assert.NoError(t, err)
	assert.Zero(t, client.calls)
}

func TestDeckProcessorUnknownJob(t *testing.T) {
	repo := &fakeJobRepo{jobs: map[string]*models.GenerationJob{}, cancelAfter: -1}
	p := NewDeckProcessor(repo, &slideLLM{})

	err := p.Process(context.Background(), &DeckGenerationJobPayload{JobUUID: "missing"})
	assert.Error(t, err)
}

func TestParseSlide(t *testing.T) {
	slide := parseSlide(`{"title": "Intro", "content": "a\nb"}`)
	assert.Equal(t, "Intro", slide.Title)
	assert.Equal(t, "a\nb", slide.Content)

	// Fences and prose around the JSON are tolerated.
	slide = parseSlide("Here you go:\n```json\n{\"title\": \"Fenced\", \"content\": \"c\"}\n```")
	assert.Equal(t, "Fenced", slide.Title)

	// Unparseable output falls back to raw text.
	slide = parseSlide("just plain text")
	assert.Equal(t, "Untitled slide", slide.Title)
	assert.Equal(t, "just plain text", slide.Content)
}

func TestDeckGenerationPayloadRoundTrip(t *testing.T) {
	payload := DeckGenerationJobPayload{JobID: 9, JobUUID: "abc", UserID: 4}

	decoded, err := DeckGenerationJobPayloadFromMap(payload.ToMap())
	assert.NoError(t, err)
	assert.Equal(t, payload, *decoded)
}
