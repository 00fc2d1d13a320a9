package prover

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/financoor/backend/src/models"
)

// LocalBackend proves in-process with Groth16 over BN254. Setup runs once at
// construction and the keys are reused for every proof.
//
// It attests that the proof was generated over the exact public-values blob
// the verifier decodes; re-execution of the tax computation inside the
// circuit is the external proving service's job. Local mode exists for
// development and tests.
type LocalBackend struct {
	ccs     constraint.ConstraintSystem
	pk      groth16.ProvingKey
	vk      groth16.VerifyingKey
	vkBytes []byte
	vkHash  string
}

func NewLocalBackend() (*LocalBackend, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &PublicValuesCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compiling public-values circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}

	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serializing verifying key: %w", err)
	}
	vkBytes := buf.Bytes()
	sum := sha256.Sum256(vkBytes)

	return &LocalBackend{
		ccs:     ccs,
		pk:      pk,
		vk:      vk,
		vkBytes: vkBytes,
		vkHash:  "0x" + hex.EncodeToString(sum[:]),
	}, nil
}

func (b *LocalBackend) Prove(ctx context.Context, input *ProvingInput) (*models.ProofResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest, err := PublicValuesDigest(input.PublicValuesBytes)
	if err != nil {
		return nil, err
	}

	witness, err := frontend.NewWitness(publicValuesAssignment(input.PublicValuesBytes, digest), ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("building witness: %w", err)
	}

	proof, err := groth16.Prove(b.ccs, b.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("groth16 prove: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serializing proof: %w", err)
	}

	return &models.ProofResult{
		Commitment:    input.Commitment,
		TotalTaxPaisa: input.PublicValues.TotalTaxPaisa.Dec(),
		UserTypeCode:  input.PublicValues.UserTypeCode,
		Used44ADA:     input.PublicValues.Used44ADA,
		Proof:         buf.Bytes(),
		PublicValues:  append([]byte(nil), input.PublicValuesBytes...),
		VKeyHash:      b.vkHash,
	}, nil
}

func (b *LocalBackend) VKeyHash(ctx context.Context) (string, error) {
	return b.vkHash, nil
}

// VerifyingKeyBytes returns the serialized verifying key, used to construct
// the matching Groth16Verifier.
func (b *LocalBackend) VerifyingKeyBytes() []byte {
	return append([]byte(nil), b.vkBytes...)
}
