package services

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/financoor/backend/src/models"
)

func newTestSQLiteStore(t *testing.T) JobStore {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE proof_jobs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			commitment TEXT NOT NULL,
			result TEXT,
			error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		t.Fatalf("creating proof_jobs table: %v", err)
	}
	return NewSQLiteJobStore(db)
}

func TestSQLiteJobStoreLifecycle(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, err := store.Get("missing"); err != ErrJobNotFound {
		t.Fatalf("Get(missing) = %v, want ErrJobNotFound", err)
	}

	var com models.Commitment
	com[0] = 0xab
	job := &models.ProofJob{ID: "job-1", Status: models.JobStatusPending, Commitment: com}
	if err := store.Create(job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(job); err == nil {
		t.Error("duplicate Create should fail on the primary key")
	}

	got, err := store.Get("job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.JobStatusPending || got.Commitment != com {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	result := &models.ProofResult{
		Commitment:    com,
		TotalTaxPaisa: "12948000",
		Proof:         []byte("proof"),
		PublicValues:  []byte("values"),
		VKeyHash:      "0xabc",
	}
	if !store.Complete("job-1", result) {
		t.Fatal("Complete on pending job returned false")
	}

	done, err := store.Get("job-1")
	if err != nil {
		t.Fatalf("Get after Complete: %v", err)
	}
	if done.Status != models.JobStatusDone || done.Result == nil {
		t.Fatalf("job after Complete: %+v", done)
	}
	if done.Result.TotalTaxPaisa != "12948000" || string(done.Result.Proof) != "proof" {
		t.Errorf("stored result corrupted: %+v", done.Result)
	}
}

func TestSQLiteJobStoreTerminalIsFinal(t *testing.T) {
	store := newTestSQLiteStore(t)
	store.Create(&models.ProofJob{ID: "job-1", Status: models.JobStatusPending})

	if !store.Fail("job-1", "prover crashed") {
		t.Fatal("Fail on pending job returned false")
	}
	if store.Complete("job-1", &models.ProofResult{}) {
		t.Error("Complete after Fail should return false")
	}
	if store.Fail("job-1", "again") {
		t.Error("second Fail should return false")
	}

	job, err := store.Get("job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != models.JobStatusError || job.Error != "prover crashed" {
		t.Errorf("terminal state overwritten: %+v", job)
	}
}
