package billing

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/app/models"
)

const (
	// BatchSize bounds how many queue rows one processing run consumes.
	BatchSize = 10
	// MaxRetries is the ceiling after which a failing event is marked
	// processed with its last error retained, so the queue stays live.
	MaxRetries = 5
)

// EventQueue is the slice of the billing repository the processor needs.
type EventQueue interface {
	GetUnprocessedWebhookEvents(limit int) ([]models.BillingWebhookEvent, error)
	UpdateWebhookEvent(event *models.BillingWebhookEvent) error
}

// TransitionApplier executes a handler-derived transition against storage.
type TransitionApplier interface {
	Apply(t Transition) error
}

// Processor drains the webhook queue in bounded batches. Events are handled
// sequentially in queue fetch order; a failing event is retried on later
// runs until the retry ceiling.
type Processor struct {
	queue   EventQueue
	applier TransitionApplier
}

func NewProcessor(queue EventQueue, applier TransitionApplier) *Processor {
	return &Processor{queue: queue, applier: applier}
}

// ProcessPending consumes one batch of unprocessed events and returns a run
// summary. Queue read errors abort the run; per-event errors are recorded on
// the row and counted, never fatal.
func (p *Processor) ProcessPending() (Summary, error) {
	events, err := p.queue.GetUnprocessedWebhookEvents(BatchSize)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(events)}
	for i := range events {
		event := &events[i]
		if p.processOne(event) {
			summary.Processed++
		} else {
			summary.Errors++
		}
	}
	return summary, nil
}

// processOne runs a single event through its handler and reports whether the
// row ended up processed.
func (p *Processor) processOne(event *models.BillingWebhookEvent) bool {
	handler, ok := HandlerFor(event.EventType)
	if !ok {
		log.Infof("[Billing] skipping unhandled event type %s (%s)", event.EventType, event.ProviderEventID)
		event.Processed = true
		if err := p.queue.UpdateWebhookEvent(event); err != nil {
			log.Errorf("[Billing] failed to mark event %s processed: %v", event.ProviderEventID, err)
			return false
		}
		return true
	}

	transition, err := handler(event)
	if err == nil {
		err = p.applier.Apply(transition)
	}

	if err != nil {
		event.RetryCount++
		event.ErrorMessage = err.Error()
		if event.RetryCount >= MaxRetries {
			// Give up on the event to keep the queue moving. The
			// final error stays on the row for inspection.
			event.Processed = true
			log.Errorf("[Billing] event %s dropped after %d retries: %v", event.ProviderEventID, event.RetryCount, err)
		} else {
			log.Warnf("[Billing] event %s failed (attempt %d/%d): %v", event.ProviderEventID, event.RetryCount, MaxRetries, err)
		}
		if updateErr := p.queue.UpdateWebhookEvent(event); updateErr != nil {
			log.Errorf("[Billing] failed to persist retry state for event %s: %v", event.ProviderEventID, updateErr)
		}
		return false
	}

	event.Processed = true
	event.ErrorMessage = ""
	if err := p.queue.UpdateWebhookEvent(event); err != nil {
		log.Errorf("[Billing] failed to mark event %s processed: %v", event.ProviderEventID, err)
		return false
	}
	return true
}
