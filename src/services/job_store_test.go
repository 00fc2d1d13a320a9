package services

import (
	"os"
	"sync"
	"testing"

	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestMemoryJobStoreLifecycle(t *testing.T) {
	store := NewMemoryJobStore()

	if _, err := store.Get("missing"); err != ErrJobNotFound {
		t.Fatalf("Get(missing) = %v, want ErrJobNotFound", err)
	}

	job := &models.ProofJob{ID: "job-1", Status: models.JobStatusPending}
	if err := store.Create(job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get("job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.JobStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}

	// Mutating the returned copy must not touch the stored job.
	got.Status = models.JobStatusError
	again, _ := store.Get("job-1")
	if again.Status != models.JobStatusPending {
		t.Error("Get returned a reference to internal state")
	}

	result := &models.ProofResult{TotalTaxPaisa: "12948000"}
	if !store.Complete("job-1", result) {
		t.Fatal("Complete on pending job returned false")
	}
	done, _ := store.Get("job-1")
	if done.Status != models.JobStatusDone || done.Result == nil {
		t.Fatalf("job after Complete: %+v", done)
	}
}

func TestMemoryJobStoreTerminalIsFinal(t *testing.T) {
	store := NewMemoryJobStore()
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

	job, _ := store.Get("job-1")
	if job.Status != models.JobStatusError || job.Error != "prover crashed" {
		t.Errorf("terminal state overwritten: %+v", job)
	}
	if store.Complete("missing", &models.ProofResult{}) || store.Fail("missing", "x") {
		t.Error("transitions on unknown ids should return false")
	}
}

func TestMemoryJobStoreSingleWinner(t *testing.T) {
	store := NewMemoryJobStore()
	store.Create(&models.ProofJob{ID: "job-1", Status: models.JobStatusPending})

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan string, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if store.Complete("job-1", &models.ProofResult{}) {
					wins <- "done"
				}
			} else {
				if store.Fail("job-1", "lost race") {
					wins <- "error"
				}
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winning transition, got %d", len(winners))
	}
	job, _ := store.Get("job-1")
	if string(job.Status) != winners[0] {
		t.Errorf("stored status %q does not match winner %q", job.Status, winners[0])
	}
}
