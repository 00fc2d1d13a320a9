package services

import (
	"sync"

	"github.com/financoor/backend/src/models"
)

// memoryJobStore keeps jobs in a mutex-guarded map. Jobs are retained for
// the process lifetime; a lost job after restart simply requires
// resubmission, the registry on chain is the durable record.
type memoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.ProofJob
}

func NewMemoryJobStore() JobStore {
	return &memoryJobStore{jobs: make(map[string]*models.ProofJob)}
}

func (s *memoryJobStore) Create(job *models.ProofJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memoryJobStore) Get(id string) (*models.ProofJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memoryJobStore) Complete(id string, result *models.ProofResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return false
	}
	job.Status = models.JobStatusDone
	job.Result = result
	return true
}

func (s *memoryJobStore) Fail(id string, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return false
	}
	job.Status = models.JobStatusError
	job.Error = message
	return true
}
