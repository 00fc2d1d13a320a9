package prover

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	frmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

const (
	// The 128-byte public-values blob is split into 16-byte chunks so each
	// chunk fits comfortably below the BN254 scalar field modulus.
	publicValuesWords = 8
	publicValuesChunk = 16
)

// PublicValuesCircuit binds the public-values blob to a single public MiMC
// digest: the prover knows words whose hash is the digest the verifier
// recomputes from the blob it was handed.
type PublicValuesCircuit struct {
	Words  [publicValuesWords]frontend.Variable
	Digest frontend.Variable `gnark:",public"`
}

func (c *PublicValuesCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Words[:]...)
	api.AssertIsEqual(c.Digest, h.Sum())
	return nil
}

// PublicValuesDigest computes the out-of-circuit MiMC digest of the blob,
// chunked identically to the circuit's witness layout.
func PublicValuesDigest(publicValues []byte) (*big.Int, error) {
	if len(publicValues) != publicValuesWords*publicValuesChunk {
		return nil, fmt.Errorf("public values length %d, want %d", len(publicValues), publicValuesWords*publicValuesChunk)
	}
	h := frmimc.NewMiMC()
	for i := 0; i < publicValuesWords; i++ {
		var e fr.Element
		e.SetBytes(publicValues[i*publicValuesChunk : (i+1)*publicValuesChunk])
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return nil, err
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

func publicValuesAssignment(publicValues []byte, digest *big.Int) *PublicValuesCircuit {
	assignment := &PublicValuesCircuit{Digest: digest}
	for i := 0; i < publicValuesWords; i++ {
		chunk := publicValues[i*publicValuesChunk : (i+1)*publicValuesChunk]
		assignment.Words[i] = new(big.Int).SetBytes(chunk)
	}
	return assignment
}
