package prover

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/ethereum/go-ethereum/common"
)

// Groth16Verifier is the generic proof verifier backing the registry in
// local mode. It accepts (verification key hash, public values, proof) and
// rejects anything that does not pair against its verifying key.
type Groth16Verifier struct {
	vk     groth16.VerifyingKey
	vkHash common.Hash
}

// NewGroth16Verifier reconstructs a verifier from a serialized verifying key.
func NewGroth16Verifier(vkBytes []byte) (*Groth16Verifier, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, fmt.Errorf("deserializing verifying key: %w", err)
	}
	return &Groth16Verifier{
		vk:     vk,
		vkHash: common.Hash(sha256.Sum256(vkBytes)),
	}, nil
}

// VKeyHash returns the hash identifying the verifying key.
func (v *Groth16Verifier) VKeyHash() common.Hash {
	return v.vkHash
}

// Verify checks the proof against the public-values blob. A proof generated
// for a different verification key, a malformed proof, or public values
// whose digest the proof does not open all fail.
func (v *Groth16Verifier) Verify(vkHash common.Hash, publicValues, proof []byte) error {
	if vkHash != v.vkHash {
		return fmt.Errorf("verification key hash %s does not match configured key %s", vkHash, v.vkHash)
	}

	digest, err := PublicValuesDigest(publicValues)
	if err != nil {
		return err
	}
	publicWitness, err := frontend.NewWitness(&PublicValuesCircuit{Digest: digest}, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("building public witness: %w", err)
	}

	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return fmt.Errorf("malformed proof bytes: %w", err)
	}

	if err := groth16.Verify(p, v.vk, publicWitness); err != nil {
		return fmt.Errorf("proof rejected: %w", err)
	}
	return nil
}
