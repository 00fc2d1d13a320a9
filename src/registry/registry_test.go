package registry

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/financoor/backend/src/commitment"
	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

var testVKHash = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

// fakeVerifier records calls and rejects when err is set.
type fakeVerifier struct {
	err   error
	calls int
	vk    common.Hash
}

func (v *fakeVerifier) Verify(vkHash common.Hash, publicValues, proof []byte) error {
	v.calls++
	v.vk = vkHash
	return v.err
}

func encodedPublicValues(t *testing.T, com models.Commitment, total uint64, code uint8, used44ada bool) []byte {
	t.Helper()
	data, err := commitment.EncodePublicValues(&models.PublicValues{
		Commitment:    com,
		TotalTaxPaisa: uint256.NewInt(total),
		UserTypeCode:  code,
		Used44ADA:     used44ada,
	})
	if err != nil {
		t.Fatalf("EncodePublicValues: %v", err)
	}
	return data
}

func TestRegistryVerifyAcceptsAndRecords(t *testing.T) {
	verifier := &fakeVerifier{}
	reg := NewRegistry(verifier, testVKHash).WithClock(func() time.Time {
		return time.Unix(1700000000, 0)
	})

	var com models.Commitment
	com[31] = 1
	caller := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	pv := encodedPublicValues(t, com, 12948000, 0, true)

	got, err := reg.Verify(caller, []byte("proof"), pv)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != com {
		t.Errorf("returned commitment %s, want %s", got.Hex(), com.Hex())
	}
	if verifier.calls != 1 || verifier.vk != testVKHash {
		t.Errorf("verifier called %d times with vk %s", verifier.calls, verifier.vk.Hex())
	}
	if !reg.IsVerified(com) {
		t.Error("IsVerified = false after accepted proof")
	}

	record, ok := reg.GetRecord(com)
	if !ok {
		t.Fatal("GetRecord found nothing")
	}
	if record.TotalTaxPaisa.Uint64() != 12948000 || record.UserTypeCode != 0 || !record.Used44ADA {
		t.Errorf("record fields wrong: %+v", record)
	}
	if record.VerifiedAt != 1700000000 {
		t.Errorf("VerifiedAt = %d, want pinned clock 1700000000", record.VerifiedAt)
	}
	if record.Verifier != caller {
		t.Errorf("record verifier = %s, want %s", record.Verifier.Hex(), caller.Hex())
	}

	events := reg.Events()
	if len(events) != 1 || events[0].Commitment != com || events[0].Verifier != caller {
		t.Errorf("events = %+v", events)
	}
}

func TestRegistryVerifyRejectsInvalidProof(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("pairing check failed")}
	reg := NewRegistry(verifier, testVKHash)

	var com models.Commitment
	com[0] = 2
	pv := encodedPublicValues(t, com, 100, 1, false)

	_, err := reg.Verify(common.Address{}, []byte("bad"), pv)
	if !errors.Is(err, ErrProofRejected) {
		t.Fatalf("Verify = %v, want ErrProofRejected", err)
	}
	if reg.IsVerified(com) {
		t.Error("rejected proof still produced a record")
	}
	if len(reg.Events()) != 0 {
		t.Error("rejected proof emitted an event")
	}
}

func TestRegistryVerifyRejectsMalformedPublicValues(t *testing.T) {
	verifier := &fakeVerifier{}
	reg := NewRegistry(verifier, testVKHash)

	var mismatch *commitment.EncodingMismatchError
	_, err := reg.Verify(common.Address{}, []byte("proof"), []byte("short"))
	if !errors.As(err, &mismatch) {
		t.Fatalf("Verify = %v, want EncodingMismatchError", err)
	}
	if verifier.calls != 0 {
		t.Error("verifier ran before the public values decoded")
	}
}

func TestRegistryOverwriteByLaterCaller(t *testing.T) {
	reg := NewRegistry(&fakeVerifier{}, testVKHash)

	var com models.Commitment
	com[5] = 9
	pv := encodedPublicValues(t, com, 500, 2, false)

	first := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	second := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	if _, err := reg.Verify(first, []byte("p1"), pv); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if _, err := reg.Verify(second, []byte("p2"), pv); err != nil {
		t.Fatalf("second Verify: %v", err)
	}

	record, _ := reg.GetRecord(com)
	if record.Verifier != second {
		t.Errorf("record verifier = %s, want the later caller %s", record.Verifier.Hex(), second.Hex())
	}
	if len(reg.Events()) != 2 {
		t.Errorf("expected 2 events, got %d", len(reg.Events()))
	}
}

func TestRegistryUnknownCommitment(t *testing.T) {
	reg := NewRegistry(&fakeVerifier{}, testVKHash)

	var com models.Commitment
	if reg.IsVerified(com) {
		t.Error("empty registry reports a commitment as verified")
	}
	if _, ok := reg.GetRecord(com); ok {
		t.Error("empty registry returned a record")
	}
}

func TestRegistryVKeyHash(t *testing.T) {
	reg := NewRegistry(&fakeVerifier{}, testVKHash)
	if reg.VKeyHash() != testVKHash {
		t.Errorf("VKeyHash = %s, want %s", reg.VKeyHash().Hex(), testVKHash.Hex())
	}
}

func TestUnavailableVerifierAlwaysRejects(t *testing.T) {
	reg := NewRegistry(&UnavailableVerifier{Reason: "verification happens on chain"}, testVKHash)

	var com models.Commitment
	com[1] = 7
	pv := encodedPublicValues(t, com, 42, 0, false)

	_, err := reg.Verify(common.Address{}, []byte("proof"), pv)
	if !errors.Is(err, ErrProofRejected) {
		t.Fatalf("Verify = %v, want ErrProofRejected", err)
	}
}
