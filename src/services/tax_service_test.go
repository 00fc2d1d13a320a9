package services

import (
	"testing"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/financoor/backend/src/models"
	"github.com/financoor/backend/src/taxengine"
)

func TestTaxServiceComputeAndCache(t *testing.T) {
	reportCache := cache.New(time.Minute, time.Minute)
	svc := NewTaxService(taxengine.New(taxengine.DefaultSchedule()), reportCache)

	req := validRequest()
	breakdown, com, err := svc.Compute(req)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if breakdown.TotalTaxINR != "129480.00" {
		t.Errorf("TotalTaxINR = %q, want \"129480.00\"", breakdown.TotalTaxINR)
	}
	if com == (models.Commitment{}) {
		t.Error("Compute returned zero commitment")
	}

	// Second call must come from the cache: same pointer, same commitment.
	cached, com2, err := svc.Compute(req)
	if err != nil {
		t.Fatalf("second Compute: %v", err)
	}
	if com2 != com {
		t.Errorf("commitment changed between calls: %s vs %s", com2.Hex(), com.Hex())
	}
	if cached != breakdown {
		t.Error("expected cached breakdown instance on second call")
	}
}

func TestTaxServicePropagatesEngineErrors(t *testing.T) {
	svc := NewTaxService(taxengine.New(taxengine.DefaultSchedule()), cache.New(time.Minute, time.Minute))

	req := validRequest()
	req.Prices = nil
	if _, _, err := svc.Compute(req); err == nil {
		t.Fatal("expected engine error for missing price")
	}
}
