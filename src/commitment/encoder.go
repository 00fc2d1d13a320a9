package commitment

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"

	"github.com/financoor/backend/src/models"
	"github.com/financoor/backend/src/taxengine"
)

// publicValuesLen is the ABI-encoded size of the public tuple: four static
// 32-byte words (bytes32, uint256, uint8, bool).
const publicValuesLen = 128

// EncodingMismatchError reports a public-values blob that does not match the
// fixed on-chain layout. Decoding never truncates or defaults; it fails.
type EncodingMismatchError struct {
	Reason string
}

func (e *EncodingMismatchError) Error() string {
	return fmt.Sprintf("public values encoding mismatch: %s", e.Reason)
}

var publicValuesArgs = mustPublicValuesArgs()

func mustPublicValuesArgs() abi.Arguments {
	bytes32T, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	uint8T, err := abi.NewType("uint8", "", nil)
	if err != nil {
		panic(err)
	}
	boolT, err := abi.NewType("bool", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "ledgerCommitment", Type: bytes32T},
		{Name: "totalTaxPaisa", Type: uint256T},
		{Name: "userType", Type: uint8T},
		{Name: "used44ada", Type: boolT},
	}
}

// Encoder derives commitments and public values from tax requests. The
// commitment is a pure function of the canonical request bytes; the public
// values additionally carry the engine's total so a verifier learns the
// liability without seeing the ledger.
type Encoder struct {
	engine *taxengine.Engine
}

func NewEncoder(engine *taxengine.Engine) *Encoder {
	return &Encoder{engine: engine}
}

// Commitment hashes the canonical request bytes with SHA-256.
func Commitment(req *models.TaxRequest) (models.Commitment, error) {
	canonical, err := EncodeCanonical(req)
	if err != nil {
		return models.Commitment{}, err
	}
	return models.Commitment(sha256.Sum256(canonical)), nil
}

// Commit computes the commitment and the public-value tuple for the request.
// It runs the engine, so every validation error the engine can raise is
// surfaced here before any proving work starts.
func (e *Encoder) Commit(req *models.TaxRequest) (models.Commitment, *models.PublicValues, error) {
	com, pv, _, err := e.CommitBreakdown(req)
	return com, pv, err
}

// CommitBreakdown is Commit plus the breakdown the total was taken from, so
// callers that need both do not run the engine twice.
func (e *Encoder) CommitBreakdown(req *models.TaxRequest) (models.Commitment, *models.PublicValues, *models.TaxBreakdown, error) {
	com, err := Commitment(req)
	if err != nil {
		return models.Commitment{}, nil, nil, err
	}

	breakdown, err := e.engine.Compute(req)
	if err != nil {
		return models.Commitment{}, nil, nil, err
	}
	totalPaisa, ok := new(big.Int).SetString(breakdown.TotalTaxPaisa, 10)
	if !ok {
		return models.Commitment{}, nil, nil, fmt.Errorf("engine produced non-numeric total %q", breakdown.TotalTaxPaisa)
	}
	total, overflow := uint256.FromBig(totalPaisa)
	if overflow {
		return models.Commitment{}, nil, nil, &EncodingMismatchError{Reason: "total tax exceeds 256 bits"}
	}

	code, err := req.UserType.Code()
	if err != nil {
		return models.Commitment{}, nil, nil, err
	}

	return com, &models.PublicValues{
		Commitment:    com,
		TotalTaxPaisa: total,
		UserTypeCode:  code,
		Used44ADA:     req.UserType == models.UserTypeIndividual && req.Use44ADA,
	}, breakdown, nil
}

// EncodePublicValues ABI-encodes the tuple exactly as the on-chain decoder
// expects it: (bytes32, uint256, uint8, bool), 128 bytes.
func EncodePublicValues(pv *models.PublicValues) ([]byte, error) {
	if pv.UserTypeCode > 2 {
		return nil, &EncodingMismatchError{Reason: fmt.Sprintf("user type code %d out of range", pv.UserTypeCode)}
	}
	packed, err := publicValuesArgs.Pack(
		[32]byte(pv.Commitment),
		pv.TotalTaxPaisa.ToBig(),
		pv.UserTypeCode,
		pv.Used44ADA,
	)
	if err != nil {
		return nil, &EncodingMismatchError{Reason: err.Error()}
	}
	if len(packed) != publicValuesLen {
		return nil, &EncodingMismatchError{Reason: fmt.Sprintf("packed length %d, want %d", len(packed), publicValuesLen)}
	}
	return packed, nil
}

// DecodePublicValues decodes an ABI-encoded tuple, rejecting anything that
// does not round-trip to the exact input bytes (wrong length, out-of-range
// user type, dirty padding words).
func DecodePublicValues(data []byte) (*models.PublicValues, error) {
	if len(data) != publicValuesLen {
		return nil, &EncodingMismatchError{Reason: fmt.Sprintf("length %d, want %d", len(data), publicValuesLen)}
	}
	values, err := publicValuesArgs.Unpack(data)
	if err != nil {
		return nil, &EncodingMismatchError{Reason: err.Error()}
	}

	rawCommitment, ok := values[0].([32]byte)
	if !ok {
		return nil, &EncodingMismatchError{Reason: "commitment word is not bytes32"}
	}
	rawTotal, ok := values[1].(*big.Int)
	if !ok {
		return nil, &EncodingMismatchError{Reason: "total tax word is not uint256"}
	}
	code, ok := values[2].(uint8)
	if !ok {
		return nil, &EncodingMismatchError{Reason: "user type word is not uint8"}
	}
	used44ada, ok := values[3].(bool)
	if !ok {
		return nil, &EncodingMismatchError{Reason: "44ada word is not bool"}
	}
	if code > 2 {
		return nil, &EncodingMismatchError{Reason: fmt.Sprintf("user type code %d out of range", code)}
	}

	total, overflow := uint256.FromBig(rawTotal)
	if overflow {
		return nil, &EncodingMismatchError{Reason: "total tax exceeds 256 bits"}
	}
	pv := &models.PublicValues{
		Commitment:    models.Commitment(rawCommitment),
		TotalTaxPaisa: total,
		UserTypeCode:  code,
		Used44ADA:     used44ada,
	}

	// Strict round-trip: any byte the decode ignored would otherwise slip
	// through into a verified record.
	reencoded, err := EncodePublicValues(pv)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(reencoded, data) {
		return nil, &EncodingMismatchError{Reason: "non-canonical encoding"}
	}
	return pv, nil
}
