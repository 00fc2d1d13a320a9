package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/financoor/backend/src/commitment"
	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
)

// ErrProofRejected wraps every verifier rejection so callers can
// distinguish an invalid proof from infrastructure failure.
var ErrProofRejected = errors.New("proof rejected by verifier")

// Verifier is the generic proof verifier the registry delegates to. It
// receives the fixed verification-key hash, the raw public values and the
// proof bytes, and returns an error for anything invalid.
type Verifier interface {
	Verify(vkHash common.Hash, publicValues, proof []byte) error
}

// VerifiedRecord is the on-chain state written for a commitment once a
// proof over it has been accepted.
type VerifiedRecord struct {
	TotalTaxPaisa *uint256.Int   `json:"total_tax_paisa"`
	UserTypeCode  uint8          `json:"user_type"`
	Used44ADA     bool           `json:"used_44ada"`
	VerifiedAt    uint64         `json:"verified_at"`
	Verifier      common.Address `json:"verifier"`
}

// VerificationEvent is emitted for every accepted verification.
type VerificationEvent struct {
	Commitment    models.Commitment `json:"commitment"`
	TotalTaxPaisa *uint256.Int      `json:"total_tax_paisa"`
	Verifier      common.Address    `json:"verifier"`
	Timestamp     uint64            `json:"timestamp"`
}

// Registry mirrors the on-chain verification contract: it decodes public
// values, runs the external verifier against an immutable verification-key
// hash, and stores the verified record keyed by commitment. Every call is
// all-or-nothing under the registry lock, matching the contract's
// transactional semantics.
//
// Any address holding a valid proof for a commitment can overwrite that
// commitment's record; there is no binding between the first recorder and
// later callers. Proof validity is the only replay protection.
type Registry struct {
	mu       sync.RWMutex
	verifier Verifier
	vkHash   common.Hash
	records  map[models.Commitment]VerifiedRecord
	events   []VerificationEvent
	clock    func() time.Time
}

func NewRegistry(verifier Verifier, vkHash common.Hash) *Registry {
	return &Registry{
		verifier: verifier,
		vkHash:   vkHash,
		records:  make(map[models.Commitment]VerifiedRecord),
		clock:    time.Now,
	}
}

// WithClock replaces the block-time source. Tests pin it; production keeps
// wall clock.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	r.clock = clock
	return r
}

// Verify decodes the public values, checks the proof, and writes the
// record. On any failure nothing is written.
func (r *Registry) Verify(caller common.Address, proof, publicValues []byte) (models.Commitment, error) {
	pv, err := commitment.DecodePublicValues(publicValues)
	if err != nil {
		return models.Commitment{}, err
	}

	if err := r.verifier.Verify(r.vkHash, publicValues, proof); err != nil {
		return models.Commitment{}, fmt.Errorf("%w: %v", ErrProofRejected, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := uint64(r.clock().Unix())
	record := VerifiedRecord{
		TotalTaxPaisa: pv.TotalTaxPaisa,
		UserTypeCode:  pv.UserTypeCode,
		Used44ADA:     pv.Used44ADA,
		VerifiedAt:    now,
		Verifier:      caller,
	}
	if prev, ok := r.records[pv.Commitment]; ok {
		logger.L.Warn("Overwriting verified record",
			"commitment", pv.Commitment.Hex(),
			"previousVerifier", prev.Verifier.Hex(),
			"newVerifier", caller.Hex())
	}
	r.records[pv.Commitment] = record
	r.events = append(r.events, VerificationEvent{
		Commitment:    pv.Commitment,
		TotalTaxPaisa: pv.TotalTaxPaisa,
		Verifier:      caller,
		Timestamp:     now,
	})

	logger.L.Info("Tax proof verified",
		"commitment", pv.Commitment.Hex(),
		"totalTaxPaisa", pv.TotalTaxPaisa.Dec(),
		"verifier", caller.Hex())
	return pv.Commitment, nil
}

// IsVerified reports whether a record with a nonzero timestamp exists for
// the commitment.
func (r *Registry) IsVerified(com models.Commitment) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[com]
	return ok && record.VerifiedAt != 0
}

// GetRecord returns the stored record for the commitment, if any.
func (r *Registry) GetRecord(com models.Commitment) (VerifiedRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[com]
	return record, ok
}

// VKeyHash returns the immutable verification-key hash the registry was
// deployed with.
func (r *Registry) VKeyHash() common.Hash {
	return r.vkHash
}

// Events returns a copy of all emitted verification events.
func (r *Registry) Events() []VerificationEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]VerificationEvent(nil), r.events...)
}
