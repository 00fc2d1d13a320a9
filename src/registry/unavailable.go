package registry

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// UnavailableVerifier rejects every proof. It backs the in-process registry
// when proving is delegated to the external backend: in that deployment the
// authoritative registry lives on chain and the local one must not accept
// records it cannot check.
type UnavailableVerifier struct {
	Reason string
}

func (v *UnavailableVerifier) Verify(vkHash common.Hash, publicValues, proof []byte) error {
	if v.Reason != "" {
		return errors.New(v.Reason)
	}
	return errors.New("in-process verification unavailable")
}
