package taxengine

import (
	"errors"
	"fmt"
)

// ErrUnsupportedUserType is returned for a user type outside the fixed enum.
var ErrUnsupportedUserType = errors.New("unsupported user type")

// MissingPriceError identifies an asset referenced by the ledger that has no
// USD price entry in the request.
type MissingPriceError struct {
	Asset string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("missing price for asset %q", e.Asset)
}

// InvalidAmountError identifies a malformed or negative numeric field on a
// ledger row (TxHash set), a price entry (Asset set), or the request itself
// for usd_inr_rate.
type InvalidAmountError struct {
	TxHash string
	Asset  string
	Field  string
	Value  string
}

func (e *InvalidAmountError) Error() string {
	switch {
	case e.TxHash != "":
		return fmt.Sprintf("invalid %s value %q on row %s", e.Field, e.Value, e.TxHash)
	case e.Asset != "":
		return fmt.Sprintf("invalid %s value %q for asset %s", e.Field, e.Value, e.Asset)
	}
	return fmt.Sprintf("invalid %s value %q", e.Field, e.Value)
}

// InvalidRowError identifies a non-numeric field with an out-of-range value,
// such as an unknown category or direction.
type InvalidRowError struct {
	TxHash string
	Field  string
	Value  string
}

func (e *InvalidRowError) Error() string {
	return fmt.Sprintf("invalid %s value %q on row %s", e.Field, e.Value, e.TxHash)
}
