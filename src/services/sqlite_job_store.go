package services

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
)

// sqliteJobStore persists jobs in the proof_jobs table so the job registry
// survives process restarts. Terminal-transition atomicity comes from the
// conditional UPDATE: only the call whose WHERE clause still sees 'pending'
// changes a row.
type sqliteJobStore struct {
	db *sql.DB
}

func NewSQLiteJobStore(db *sql.DB) JobStore {
	return &sqliteJobStore{db: db}
}

func (s *sqliteJobStore) Create(job *models.ProofJob) error {
	_, err := s.db.Exec(
		`INSERT INTO proof_jobs (id, status, commitment) VALUES (?, ?, ?)`,
		job.ID, string(job.Status), job.Commitment.Hex(),
	)
	if err != nil {
		return fmt.Errorf("inserting proof job %s: %w", job.ID, err)
	}
	return nil
}

func (s *sqliteJobStore) Get(id string) (*models.ProofJob, error) {
	var (
		job        models.ProofJob
		status     string
		commitment string
		result     sql.NullString
		errMsg     sql.NullString
	)
	err := s.db.QueryRow(
		`SELECT id, status, commitment, result, error FROM proof_jobs WHERE id = ?`, id,
	).Scan(&job.ID, &status, &commitment, &result, &errMsg)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying proof job %s: %w", id, err)
	}

	job.Status = models.JobStatus(status)
	if err := job.Commitment.FromHex(commitment); err != nil {
		return nil, fmt.Errorf("stored commitment for job %s corrupt: %w", id, err)
	}
	if result.Valid && result.String != "" {
		var res models.ProofResult
		if err := json.Unmarshal([]byte(result.String), &res); err != nil {
			return nil, fmt.Errorf("stored result for job %s corrupt: %w", id, err)
		}
		job.Result = &res
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}

func (s *sqliteJobStore) Complete(id string, result *models.ProofResult) bool {
	payload, err := json.Marshal(result)
	if err != nil {
		logger.L.Error("Failed to marshal proof result", "jobID", id, "error", err)
		return false
	}
	res, err := s.db.Exec(
		`UPDATE proof_jobs SET status = ?, result = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		string(models.JobStatusDone), string(payload), id, string(models.JobStatusPending),
	)
	if err != nil {
		logger.L.Error("Failed to complete proof job", "jobID", id, "error", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n == 1
}

func (s *sqliteJobStore) Fail(id string, message string) bool {
	res, err := s.db.Exec(
		`UPDATE proof_jobs SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		string(models.JobStatusError), message, id, string(models.JobStatusPending),
	)
	if err != nil {
		logger.L.Error("Failed to mark proof job as errored", "jobID", id, "error", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n == 1
}
