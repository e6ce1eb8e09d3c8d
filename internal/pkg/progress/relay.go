// Package progress bridges polled generation-job state to a server-sent
// event stream.
package progress

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/app/models"
)

const (
	// PollInterval is the fixed sleep between job state reads.
	PollInterval = 500 * time.Millisecond
	// MaxPolls caps the stream lifetime at 5 minutes.
	MaxPolls = 600
)

// JobSource reads current job state. The repository layer implements this.
type JobSource interface {
	GetByUUID(uuid string) (*models.GenerationJob, error)
}

// Event is one SSE frame payload.
type Event struct {
	Type     string         `json:"type"`
	Slide    *models.Slide  `json:"slide,omitempty"`
	Status   string         `json:"status,omitempty"`
	Progress int            `json:"progress,omitempty"`
	Slides   []models.Slide `json:"slides,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// Relay streams one job's progress. Each invocation emits slide events as
// slides appear, status events when status or progress changed since the
// last poll, and exactly one terminal event: done on completion, error on
// failure, cancellation or timeout. Never both.
type Relay struct {
	jobs     JobSource
	interval time.Duration
	maxPolls int
}

func NewRelay(jobs JobSource) *Relay {
	return &Relay{jobs: jobs, interval: PollInterval, maxPolls: MaxPolls}
}

// Stream polls the job until a terminal state or the iteration ceiling and
// writes SSE frames to w. The writer is flushed per event; the caller owns
// closing the underlying connection after Stream returns.
func (r *Relay) Stream(jobUUID string, w *bufio.Writer) {
	defer func() {
		if err := w.Flush(); err != nil {
			log.Debugf("[Progress] final flush for job %s: %v", jobUUID, err)
		}
	}()

	var (
		lastStatus   string
		lastProgress = -1
		sentSlides   int
	)

	for i := 0; i < r.maxPolls; i++ {
		job, err := r.jobs.GetByUUID(jobUUID)
		if err != nil {
			r.writeEvent(w, Event{Type: "error", Message: fmt.Sprintf("failed to read job state: %v", err)})
			return
		}

		slides, err := job.Slides()
		if err != nil {
			r.writeEvent(w, Event{Type: "error", Message: fmt.Sprintf("corrupt slide data: %v", err)})
			return
		}

		// New slides since the last poll, one event each.
		for ; sentSlides < len(slides); sentSlides++ {
			slide := slides[sentSlides]
			if err := r.writeEvent(w, Event{Type: "slide", Slide: &slide}); err != nil {
				return
			}
		}

		if job.Status != lastStatus || job.Progress != lastProgress {
			lastStatus = job.Status
			lastProgress = job.Progress
			if !job.IsTerminal() {
				if err := r.writeEvent(w, Event{Type: "status", Status: job.Status, Progress: job.Progress}); err != nil {
					return
				}
			}
		}

		switch job.Status {
		case models.JobStatusCompleted:
			r.writeEvent(w, Event{Type: "done", Status: job.Status, Slides: slides})
			return
		case models.JobStatusFailed:
			message := job.ErrorMessage
			if message == "" {
				message = "generation failed"
			}
			r.writeEvent(w, Event{Type: "error", Status: job.Status, Message: message})
			return
		case models.JobStatusCancelled:
			r.writeEvent(w, Event{Type: "error", Status: job.Status, Message: "generation cancelled"})
			return
		}

		time.Sleep(r.interval)
	}

	r.writeEvent(w, Event{Type: "error", Message: "timed out waiting for generation to finish"})
}

// writeEvent emits one data frame and flushes it out immediately.
func (r *Relay) writeEvent(w *bufio.Writer, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
