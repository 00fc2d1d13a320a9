package services

import (
	"errors"

	"github.com/financoor/backend/src/models"
)

var (
	// ErrJobNotFound is returned by Status for an unknown job id.
	ErrJobNotFound = errors.New("proof job not found")
	// ErrQueueFull rejects a submission when the proving queue is saturated.
	ErrQueueFull = errors.New("proof queue full")
)

// TaxService computes synchronous tax breakdowns for API clients.
type TaxService interface {
	Compute(req *models.TaxRequest) (*models.TaxBreakdown, models.Commitment, error)
}

// ProofService manages asynchronous proof generation behind a submit/poll
// contract.
type ProofService interface {
	// Submit validates the request synchronously and, if it passes, creates
	// a pending job and hands it to a background worker. The returned job id
	// is immediately pollable.
	Submit(req *models.TaxRequest) (string, error)
	// Status returns the job; terminal results are idempotent.
	Status(id string) (*models.ProofJob, error)
	// Close stops intake and waits for in-flight proving work.
	Close()
}

// JobStore is the shared registry of proof jobs. Complete and Fail report
// whether the call won the single pending->terminal transition; once a job
// is terminal every later transition attempt returns false and changes
// nothing.
type JobStore interface {
	Create(job *models.ProofJob) error
	Get(id string) (*models.ProofJob, error)
	Complete(id string, result *models.ProofResult) bool
	Fail(id string, message string) bool
}
