package mailer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ResultHandler receives the outcome of every queued delivery.
type ResultHandler func(job MailJob, err error)

// InMemoryMailer delivers queued mails through a base client with a fixed set of workers
type InMemoryMailer struct {
	baseMailer  Client
	queue       chan MailJob
	workerCount int
	sendTimeout time.Duration
	onResult    ResultHandler
	running     bool
	wg          sync.WaitGroup
	mu          sync.Mutex
	logger      *zap.SugaredLogger
}

func NewInMemoryMailer(
	baseMailer Client,
	workerCount int,
	queueSize int,
	logger *zap.SugaredLogger) *InMemoryMailer {

	if workerCount <= 0 {
		workerCount = 2
	}

	if queueSize <= 0 {
		queueSize = 100
	}

	return &InMemoryMailer{
		baseMailer:  baseMailer,
		queue:       make(chan MailJob, queueSize),
		workerCount: workerCount,
		sendTimeout: time.Minute,
		logger:      logger,
	}
}

// OnResult must be set before Start.
func (m *InMemoryMailer) OnResult(handler ResultHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onResult = handler
}

// Enqueue adds a mail job to the queue
func (m *InMemoryMailer) Enqueue(job MailJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		m.logger.Errorw("mail queue is not running", "mail_id", job.MailID)
		return ErrQueueNotRunning
	}

	select {
	case m.queue <- job:
		m.logger.Infow("mail job enqueued", "mail_id", job.MailID)
		return nil
	case <-time.After(100 * time.Millisecond):
		m.logger.Errorw("mail queue is full", "mail_id", job.MailID)
		return ErrQueueFull
	}
}

// Start begins processing the mail queue
func (m *InMemoryMailer) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.running = true

	for i := 0; i < m.workerCount; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
}

// Stop closes the queue and waits for the workers to drain it
func (m *InMemoryMailer) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *InMemoryMailer) worker(id int) {
	defer m.wg.Done()
	m.logger.Infow("mail worker started", "worker", id)

	for job := range m.queue {
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
		err := m.baseMailer.Send(ctx, job.Envelope)
		cancel()

		if err != nil {
			m.logger.Errorw("mail worker failed to deliver", "worker", id, "mail_id", job.MailID, "error", err)
		} else {
			m.logger.Infow("mail worker delivered", "worker", id, "mail_id", job.MailID, "duration", time.Since(startTime))
		}

		if m.onResult != nil {
			m.onResult(job, err)
		}
	}

	m.logger.Infow("mail worker stopped", "worker", id)
}
