package progress

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/queryhub/QueryHub/app/models"
)

// scriptedJobSource returns one prepared job state per poll, repeating the
// last state once the script is exhausted.
type scriptedJobSource struct {
	states []models.GenerationJob
	errs   []error
	calls  int
}

func (s *scriptedJobSource) GetByUUID(uuid string) (*models.GenerationJob, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	if idx >= len(s.states) {
		idx = len(s.states) - 1
	}
	state := s.states[idx]
	return &state, nil
}

func newTestRelay(source JobSource, maxPolls int) *Relay {
	r := NewRelay(source)
	r.interval = time.Millisecond
	r.maxPolls = maxPolls
	return r
}

func jobState(status string, progress int, slides []models.Slide) models.GenerationJob {
	job := models.GenerationJob{UUID: "u1", Status: status, Progress: progress, SlideCount: len(slides)}
	if slides != nil {
		_ = job.SetSlides(slides)
	}
	return job
}

func streamEvents(t *testing.T, relay *Relay) []Event {
	t.Helper()
	var buf bytes.Buffer
	relay.Stream("u1", bufio.NewWriter(&buf))

	var events []Event
	for _, frame := range strings.Split(buf.String(), "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		assert.True(t, strings.HasPrefix(frame, "data: "), frame)
		var event Event
		assert.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &event))
		events = append(events, event)
	}
	return events
}

func countType(events []Event, eventType string) int {
	n := 0
	for _, e := range events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func TestStreamCompletedJob(t *testing.T) {
	slides := []models.Slide{
		{Index: 0, Title: "One", Content: "a"},
		{Index: 1, Title: "Two", Content: "b"},
	}
	source := &scriptedJobSource{states: []models.GenerationJob{
		jobState(models.JobStatusProcessing, 50, slides[:1]),
		jobState(models.JobStatusCompleted, 100, slides),
	}}

	events := streamEvents(t, newTestRelay(source, 10))

	assert.Equal(t, 1, countType(events, "done"))
	assert.Equal(t, 0, countType(events, "error"))
	assert.Equal(t, 2, countType(events, "slide"))

	final := events[len(events)-1]
	assert.Equal(t, "done", final.Type)
	assert.Len(t, final.Slides, 2)
	assert.Equal(t, "Two", final.Slides[1].Title)
}

func TestStreamFailedJob(t *testing.T) {
	failed := jobState(models.JobStatusFailed, 30, nil)
	failed.ErrorMessage = "model unavailable"
	source := &scriptedJobSource{states: []models.GenerationJob{
		jobState(models.JobStatusProcessing, 30, nil),
		failed,
	}}

	events := streamEvents(t, newTestRelay(source, 10))

	assert.Equal(t, 0, countType(events, "done"))
	assert.Equal(t, 1, countType(events, "error"))
	final := events[len(events)-1]
	assert.Equal(t, "error", final.Type)
	assert.Equal(t, "model unavailable", final.Message)
}

func TestStreamCancelledJob(t *testing.T) {
	source := &scriptedJobSource{states: []models.GenerationJob{
		jobState(models.JobStatusCancelled, 0, nil),
	}}

	events := streamEvents(t, newTestRelay(source, 10))

	assert.Equal(t, 1, countType(events, "error"))
	assert.Equal(t, 0, countType(events, "done"))
	assert.Contains(t, events[len(events)-1].Message, "cancelled")
}

func TestStreamTimeout(t *testing.T) {
	source := &scriptedJobSource{states: []models.GenerationJob{
		jobState(models.JobStatusProcessing, 10, nil),
	}}

	events := streamEvents(t, newTestRelay(source, 3))

	assert.Equal(t, 3, source.calls)
	assert.Equal(t, 1, countType(events, "error"))
	assert.Equal(t, 0, countType(events, "done"))
	assert.Contains(t, events[len(events)-1].Message, "timed out")
}

func TestStreamStatusEventsOnlyOnChange(t *testing.T) {
	same := jobState(models.JobStatusProcessing, 20, nil)
	source := &scriptedJobSource{states: []models.GenerationJob{
		same, same, same,
		jobState(models.JobStatusProcessing, 40, nil),
	}}

	events := streamEvents(t, newTestRelay(source, 4))

	// One event for the initial state, one for the progress change. The
	// repeated identical polls emit nothing.
	assert.Equal(t, 2, countType(events, "status"))
}

func TestStreamFetchErrorIsTerminal(t *testing.T) {
	source := &scriptedJobSource{
		states: []models.GenerationJob{jobState(models.JobStatusProcessing, 0, nil)},
		errs:   []error{errors.New("db down")},
	}

	events := streamEvents(t, newTestRelay(source, 10))

	assert.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
	assert.Contains(t, events[0].Message, "db down")
}

func TestStreamNeverBothTerminals(t *testing.T) {
	// A job that completes and whose state keeps being returned must still
	// produce exactly one terminal event.
	done := jobState(models.JobStatusCompleted, 100, []models.Slide{{Index: 0, Title: "T", Content: "c"}})
	source := &scriptedJobSource{states: []models.GenerationJob{done, done, done}}

	events := streamEvents(t, newTestRelay(source, 10))

	assert.Equal(t, 1, countType(events, "done")+countType(events, "error"))
	assert.Equal(t, 1, source.calls)
}
