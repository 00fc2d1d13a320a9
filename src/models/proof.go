package models

import (
	"github.com/holiman/uint256"
)

// JobStatus is the lifecycle state of a proof job. A job moves from pending
// to exactly one of done or error and never transitions again.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Terminal reports whether the status is done or error.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// ProofJob tracks one asynchronous proof generation request.
type ProofJob struct {
	ID         string       `json:"id"`
	Status     JobStatus    `json:"status"`
	Commitment Commitment   `json:"commitment"`
	Result     *ProofResult `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// ProofResult is the artifact set returned by the proving backend. Proof and
// PublicValues marshal as base64 in JSON, VKeyHash as hex, matching the
// external prover contract.
type ProofResult struct {
	Commitment    Commitment `json:"commitment"`
	TotalTaxPaisa string     `json:"total_tax_paisa"`
	UserTypeCode  uint8      `json:"user_type"`
	Used44ADA     bool       `json:"used_44ada"`
	Proof         []byte     `json:"proof"`
	PublicValues  []byte     `json:"public_values"`
	VKeyHash      string     `json:"vkey_hash"`
}

// PublicValues is the fixed tuple revealed by a proof and decoded on-chain:
// (bytes32 commitment, uint256 totalTaxPaisa, uint8 userType, bool used44ada).
type PublicValues struct {
	Commitment    Commitment
	TotalTaxPaisa *uint256.Int
	UserTypeCode  uint8
	Used44ADA     bool
}
