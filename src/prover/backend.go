package prover

import (
	"context"

	"github.com/financoor/backend/src/models"
)

// ProvingInput carries the validated artifacts a backend proves over. The
// request has already passed engine validation and the public values are the
// exact bytes the on-chain decoder will see.
type ProvingInput struct {
	Request           *models.TaxRequest
	Breakdown         *models.TaxBreakdown
	Commitment        models.Commitment
	PublicValues      *models.PublicValues
	PublicValuesBytes []byte
}

// Backend generates proofs for tax computations. Prove is long-running
// (multi-minute for real proving systems) and must respect ctx cancellation;
// callers run it on background workers, never on the request path.
type Backend interface {
	Prove(ctx context.Context, input *ProvingInput) (*models.ProofResult, error)
	VKeyHash(ctx context.Context) (string, error)
}
