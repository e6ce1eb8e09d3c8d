package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
	"github.com/queryhub/QueryHub/internal/pkg/llm"
)

const slideSystemPrompt = "You write concise presentation slides. " +
	"Answer with a single JSON object {\"title\": string, \"content\": string} and nothing else. " +
	"Content is 3-5 short bullet lines separated by newlines."

// DeckProcessor generates slide decks one slide at a time, writing each
// finished slide back to the job row so the progress stream can pick it up.
// The processor is the only writer of the row while the job runs; the user
// can flip the status to cancelled, which is honored between slides.
type DeckProcessor struct {
	jobs   repository.JobRepository
	client llm.Client
}

func NewDeckProcessor(jobs repository.JobRepository, client llm.Client) *DeckProcessor {
	return &DeckProcessor{jobs: jobs, client: client}
}

// Process runs one deck generation job to a terminal status. The returned
// error reflects infrastructure failures only; a generation failure is
// recorded on the row as status failed and does not requeue the job.
func (p *DeckProcessor) Process(ctx context.Context, payload *DeckGenerationJobPayload) error {
	job, err := p.jobs.GetByUUID(payload.JobUUID)
	if err != nil {
		return fmt.Errorf("load generation job %s: %w", payload.JobUUID, err)
	}
	if job.IsTerminal() {
		log.Infof("[DeckGen] job %s already terminal (%s), skipping", job.UUID, job.Status)
		return nil
	}

	job.Status = models.JobStatusProcessing
	job.Progress = 0
	if err := p.jobs.Update(job); err != nil {
		return fmt.Errorf("mark job %s processing: %w", job.UUID, err)
	}

	slides := make([]models.Slide, 0, job.SlideCount)
	for i := 0; i < job.SlideCount; i++ {
		// Reload between slides so a cancellation request takes effect.
		current, err := p.jobs.GetByUUID(job.UUID)
		if err != nil {
			return p.fail(job, fmt.Sprintf("reload job state: %v", err))
		}
		if current.Status == models.JobStatusCancelled {
			log.Infof("[DeckGen] job %s cancelled after %d slides", job.UUID, i)
			return nil
		}

		slide, err := p.generateSlide(ctx, job.Topic, i, job.SlideCount, slides)
		if err != nil {
			return p.fail(job, fmt.Sprintf("slide %d: %v", i+1, err))
		}
		slides = append(slides, slide)

		if err := job.SetSlides(slides); err != nil {
			return p.fail(job, fmt.Sprintf("encode slides: %v", err))
		}
		job.Progress = (i + 1) * 100 / job.SlideCount
		if err := p.jobs.Update(job); err != nil {
			return p.fail(job, fmt.Sprintf("store slide %d: %v", i+1, err))
		}
	}

	job.Status = models.JobStatusCompleted
	job.Progress = 100
	if err := p.jobs.Update(job); err != nil {
		return fmt.Errorf("mark job %s completed: %w", job.UUID, err)
	}
	log.Infof("[DeckGen] job %s completed with %d slides", job.UUID, len(slides))
	return nil
}

// fail records a terminal failure on the row. The row update is best-effort;
// its error wins over the original one only if the write itself fails.
func (p *DeckProcessor) fail(job *models.GenerationJob, message string) error {
	job.Status = models.JobStatusFailed
	job.ErrorMessage = message
	if err := p.jobs.Update(job); err != nil {
		return fmt.Errorf("mark job %s failed: %w", job.UUID, err)
	}
	log.Errorf("[DeckGen] job %s failed: %s", job.UUID, message)
	return nil
}

func (p *DeckProcessor) generateSlide(ctx context.Context, topic string, index, total int, previous []models.Slide) (models.Slide, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Topic: %s\nThis is slide %d of %d.\n", topic, index+1, total)
	if len(previous) > 0 {
		prompt.WriteString("Slides so far:\n")
		for _, s := range previous {
			fmt.Fprintf(&prompt, "- %s\n", s.Title)
		}
		prompt.WriteString("Do not repeat them.\n")
	}

	text, err := p.client.Complete(ctx, llm.CompletionRequest{
		System:    slideSystemPrompt,
		Prompt:    prompt.String(),
		MaxTokens: 512,
	})
	if err != nil {
		return models.Slide{}, err
	}

	slide := parseSlide(text)
	slide.Index = index
	return slide, nil
}

// parseSlide decodes the model's JSON answer, tolerating surrounding prose
// or markdown fences. A completely unparseable answer becomes the slide
// body under a generic title.
func parseSlide(text string) models.Slide {
	raw := text
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var parsed struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil && parsed.Title != "" {
		return models.Slide{Title: parsed.Title, Content: parsed.Content}
	}
	return models.Slide{Title: "Untitled slide", Content: strings.TrimSpace(text)}
}
