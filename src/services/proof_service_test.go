package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/financoor/backend/src/commitment"
	"github.com/financoor/backend/src/models"
	"github.com/financoor/backend/src/prover"
	"github.com/financoor/backend/src/taxengine"
)

// fakeBackend lets tests control proving outcomes. If block is non-nil the
// backend waits on it (or the context) before returning.
type fakeBackend struct {
	err    error
	block  chan struct{}
	proven atomic.Int32
}

func (b *fakeBackend) Prove(ctx context.Context, input *prover.ProvingInput) (*models.ProofResult, error) {
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	b.proven.Add(1)
	return &models.ProofResult{
		Commitment:    input.Commitment,
		TotalTaxPaisa: input.PublicValues.TotalTaxPaisa.Dec(),
		UserTypeCode:  input.PublicValues.UserTypeCode,
		Used44ADA:     input.PublicValues.Used44ADA,
		Proof:         []byte("proof"),
		PublicValues:  input.PublicValuesBytes,
		VKeyHash:      "0xfake",
	}, nil
}

func (b *fakeBackend) VKeyHash(ctx context.Context) (string, error) {
	return "0xfake", nil
}

func newTestEncoder() *commitment.Encoder {
	return commitment.NewEncoder(taxengine.New(taxengine.DefaultSchedule()))
}

func validRequest() *models.TaxRequest {
	return &models.TaxRequest{
		UserType: models.UserTypeIndividual,
		Ledger: []models.LedgerRow{{
			ChainID: 1, OwnerWallet: "0xaaa", TxHash: "0x01", BlockTime: 1700000000,
			Asset: "USDC", Amount: "5000", Direction: models.DirectionIn,
			Category: models.CategoryGains, Confidence: 1,
		}},
		Prices:     []models.PriceEntry{{Asset: "USDC", USDPrice: "1"}},
		USDINRRate: "83",
	}
}

func waitForTerminal(t *testing.T, svc ProofService, id string) *models.ProofJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Status(id)
		if err != nil {
			t.Fatalf("Status(%s): %v", id, err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return nil
}

func TestProofServiceSubmitAndComplete(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewProofService(newTestEncoder(), backend, NewMemoryJobStore(), 2, 4, time.Minute)
	defer svc.Close()

	id, err := svc.Submit(validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Fatal("Submit returned empty job id")
	}

	job := waitForTerminal(t, svc, id)
	if job.Status != models.JobStatusDone {
		t.Fatalf("job status = %q (%s), want done", job.Status, job.Error)
	}
	if job.Result == nil {
		t.Fatal("done job carries no result")
	}
	// 5000 USDC gains * 83 = 415,000 INR, 30% VDA + 4% cess = 129,480.00.
	if job.Result.TotalTaxPaisa != "12948000" {
		t.Errorf("TotalTaxPaisa = %q, want \"12948000\"", job.Result.TotalTaxPaisa)
	}
	if job.Result.Commitment != job.Commitment {
		t.Errorf("result commitment %s != job commitment %s",
			job.Result.Commitment.Hex(), job.Commitment.Hex())
	}

	// Terminal results are idempotent across polls.
	again := waitForTerminal(t, svc, id)
	if again.Status != models.JobStatusDone || again.Result.TotalTaxPaisa != job.Result.TotalTaxPaisa {
		t.Error("second poll returned a different terminal result")
	}
}

func TestProofServiceSubmitValidatesSynchronously(t *testing.T) {
	backend := &fakeBackend{}
	store := NewMemoryJobStore()
	svc := NewProofService(newTestEncoder(), backend, store, 1, 2, time.Minute)
	defer svc.Close()

	req := validRequest()
	req.Prices = nil // drops the price the gains row needs
	_, err := svc.Submit(req)
	var missing *taxengine.MissingPriceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPriceError, got %v", err)
	}
	if backend.proven.Load() != 0 {
		t.Error("invalid request reached the backend")
	}
}

func TestProofServiceNeverCompletesSynchronously(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	svc := NewProofService(newTestEncoder(), backend, NewMemoryJobStore(), 1, 2, time.Minute)
	defer svc.Close()

	id, err := svc.Submit(validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, err := svc.Status(id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.Status != models.JobStatusPending {
		t.Fatalf("job status immediately after Submit = %q, want pending", job.Status)
	}

	close(backend.block)
	if got := waitForTerminal(t, svc, id); got.Status != models.JobStatusDone {
		t.Fatalf("job status = %q, want done", got.Status)
	}
}

func TestProofServiceBackendFailure(t *testing.T) {
	backend := &fakeBackend{err: errors.New("prover exploded")}
	svc := NewProofService(newTestEncoder(), backend, NewMemoryJobStore(), 1, 2, time.Minute)
	defer svc.Close()

	id, err := svc.Submit(validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job := waitForTerminal(t, svc, id)
	if job.Status != models.JobStatusError {
		t.Fatalf("job status = %q, want error", job.Status)
	}
	if !strings.Contains(job.Error, "prover exploded") {
		t.Errorf("job error %q does not carry the backend failure", job.Error)
	}
	if job.Result != nil {
		t.Error("failed job carries a result")
	}
}

func TestProofServiceQueueFull(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	svc := NewProofService(newTestEncoder(), backend, NewMemoryJobStore(), 1, 1, time.Minute)
	defer svc.Close()

	first, err := svc.Submit(validRequest())
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := svc.Submit(validRequest()); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Submit = %v, want ErrQueueFull", err)
	}

	// Draining the queue restores capacity.
	close(backend.block)
	waitForTerminal(t, svc, first)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := svc.Submit(validRequest()); err == nil {
			break
		} else if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("Submit after drain: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("queue capacity never recovered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProofServiceTimeout(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	svc := NewProofService(newTestEncoder(), backend, NewMemoryJobStore(), 1, 2, 20*time.Millisecond)
	defer svc.Close()

	id, err := svc.Submit(validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job := waitForTerminal(t, svc, id)
	if job.Status != models.JobStatusError {
		t.Fatalf("job status = %q, want error", job.Status)
	}
	if !strings.Contains(job.Error, "timed out") {
		t.Errorf("job error %q does not mention the timeout", job.Error)
	}
}

func TestProofServiceStatusUnknownJob(t *testing.T) {
	svc := NewProofService(newTestEncoder(), &fakeBackend{}, NewMemoryJobStore(), 1, 2, time.Minute)
	defer svc.Close()

	if _, err := svc.Status("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Status(nope) = %v, want ErrJobNotFound", err)
	}
}
