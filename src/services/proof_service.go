package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/financoor/backend/src/commitment"
	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
	"github.com/financoor/backend/src/prover"
)

const (
	DefaultProofWorkers   = 2
	DefaultProofQueueSize = 16
	DefaultProverTimeout  = 10 * time.Minute
)

type proofTask struct {
	jobID string
	input *prover.ProvingInput
}

type proofServiceImpl struct {
	encoder *commitment.Encoder
	backend prover.Backend
	store   JobStore

	queue chan *proofTask
	sem   chan struct{}
	quit  chan struct{}
	wg    sync.WaitGroup

	timeout time.Duration
}

// NewProofService builds the job manager and starts its worker pool. The
// queue is bounded: once workers plus queue are saturated, Submit rejects
// with ErrQueueFull rather than queueing unbounded proving work.
func NewProofService(
	encoder *commitment.Encoder,
	backend prover.Backend,
	store JobStore,
	workers int,
	queueSize int,
	timeout time.Duration,
) ProofService {
	if workers <= 0 {
		workers = DefaultProofWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultProofQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultProverTimeout
	}

	s := &proofServiceImpl{
		encoder: encoder,
		backend: backend,
		store:   store,
		queue:   make(chan *proofTask, queueSize),
		sem:     make(chan struct{}, queueSize),
		quit:    make(chan struct{}),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	logger.L.Info("Proof service started", "workers", workers, "queueSize", queueSize, "timeout", timeout.String())
	return s
}

func (s *proofServiceImpl) Submit(req *models.TaxRequest) (string, error) {
	// Validation runs synchronously: a request the engine or encoder rejects
	// never becomes a job.
	com, pv, breakdown, err := s.encoder.CommitBreakdown(req)
	if err != nil {
		return "", err
	}
	pvBytes, err := commitment.EncodePublicValues(pv)
	if err != nil {
		return "", err
	}

	select {
	case s.sem <- struct{}{}:
	default:
		logger.L.Warn("Proof queue full, rejecting submission", "commitment", com.Hex())
		return "", ErrQueueFull
	}

	job := &models.ProofJob{
		ID:         uuid.NewString(),
		Status:     models.JobStatusPending,
		Commitment: com,
	}
	if err := s.store.Create(job); err != nil {
		<-s.sem
		return "", err
	}

	// The semaphore reserved queue space, so this send cannot block.
	s.queue <- &proofTask{
		jobID: job.ID,
		input: &prover.ProvingInput{
			Request:           req,
			Breakdown:         breakdown,
			Commitment:        com,
			PublicValues:      pv,
			PublicValuesBytes: pvBytes,
		},
	}

	logger.L.Info("Proof job submitted", "jobID", job.ID, "commitment", com.Hex(), "totalTaxPaisa", breakdown.TotalTaxPaisa)
	return job.ID, nil
}

func (s *proofServiceImpl) Status(id string) (*models.ProofJob, error) {
	return s.store.Get(id)
}

func (s *proofServiceImpl) Close() {
	close(s.quit)
	s.wg.Wait()
	logger.L.Info("Proof service stopped")
}

func (s *proofServiceImpl) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case task := <-s.queue:
			s.process(task)
			<-s.sem
		}
	}
}

func (s *proofServiceImpl) process(task *proofTask) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.backend.Prove(ctx, task.input)
	if err != nil {
		msg := err.Error()
		if ctx.Err() == context.DeadlineExceeded {
			msg = "proving timed out after " + s.timeout.String()
		}
		if s.store.Fail(task.jobID, msg) {
			logger.L.Warn("Proof job failed", "jobID", task.jobID, "error", msg, "duration", time.Since(start))
		} else {
			logger.L.Error("Proof job already terminal, dropping failure", "jobID", task.jobID, "error", msg)
		}
		return
	}

	if s.store.Complete(task.jobID, result) {
		logger.L.Info("Proof job completed", "jobID", task.jobID, "commitment", result.Commitment.Hex(), "duration", time.Since(start))
	} else {
		logger.L.Error("Proof job already terminal, dropping result", "jobID", task.jobID)
	}
}
