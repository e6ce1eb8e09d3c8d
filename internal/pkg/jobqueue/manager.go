package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/queryhub/QueryHub/internal/pkg/billing"
	"github.com/queryhub/QueryHub/internal/pkg/env"
	metrics "github.com/queryhub/QueryHub/internal/pkg/metrics/counter"
	"github.com/queryhub/QueryHub/internal/pkg/securitymon"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	webhookTicker      *time.Ticker
	incidentTicker     *time.Ticker
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool

	webhookProcessor *billing.Processor
	detector         *securitymon.Detector
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if raw := env.GetEnv("JOB_QUEUE_WORKERS", ""); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				workerCount = n
			}
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// SetWebhookProcessor wires the billing queue drain into the background loop
func (m *Manager) SetWebhookProcessor(p *billing.Processor) {
	m.webhookProcessor = p
}

// SetDetector wires the periodic security scan
func (m *Manager) SetDetector(d *securitymon.Detector) {
	m.detector = d
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	if m.webhookProcessor != nil {
		m.webhookTicker = time.NewTicker(time.Minute)
		m.wg.Add(1)
		go m.webhookWorker()
	}

	if m.detector != nil {
		m.incidentTicker = time.NewTicker(time.Minute)
		m.wg.Add(1)
		go m.incidentWorker()
	}

	m.counterFlushTicker = time.NewTicker(30 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping...")
	close(m.stopCh)
	m.running = false

	if m.webhookTicker != nil {
		m.webhookTicker.Stop()
	}
	if m.incidentTicker != nil {
		m.incidentTicker.Stop()
	}
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	m.queue.Stop()
	m.wg.Wait()

	// Final counter flush so pending increments survive a restart
	if err := metrics.FlushAll(); err != nil {
		log.Errorf("[JobQueue Manager] Final counter flush failed: %v", err)
	}
	log.Info("[JobQueue Manager] Stopped")
}

// webhookWorker drains the billing webhook queue on a schedule
func (m *Manager) webhookWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.webhookTicker.C:
			summary, err := m.webhookProcessor.ProcessPending()
			if err != nil {
				log.Errorf("[JobQueue Manager] Webhook processing failed: %v", err)
				continue
			}
			if summary.Total > 0 {
				log.Infof("[JobQueue Manager] Webhook run: %d processed, %d errors of %d", summary.Processed, summary.Errors, summary.Total)
			}
		}
	}
}

// incidentWorker runs the brute-force scan on a schedule
func (m *Manager) incidentWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.incidentTicker.C:
			result, err := m.detector.Scan()
			if err != nil {
				log.Errorf("[JobQueue Manager] Security scan failed: %v", err)
				continue
			}
			if result.NewIncidents > 0 {
				log.Warnf("[JobQueue Manager] Security scan opened %d incidents", result.NewIncidents)
			}
		}
	}
}

// counterFlushWorker periodically flushes Redis counters to the database
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush failed: %v", err)
			}
		}
	}
}
