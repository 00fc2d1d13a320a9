package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// UserType is the tax entity type a request is computed for.
type UserType string

const (
	UserTypeIndividual UserType = "individual"
	UserTypeHUF        UserType = "huf" // Hindu Undivided Family
	UserTypeCorporate  UserType = "corporate"
)

// Code returns the on-chain numeric code for the user type (0, 1 or 2).
func (u UserType) Code() (uint8, error) {
	switch u {
	case UserTypeIndividual:
		return 0, nil
	case UserTypeHUF:
		return 1, nil
	case UserTypeCorporate:
		return 2, nil
	}
	return 0, fmt.Errorf("unsupported user type %q", string(u))
}

// Valid reports whether u is one of the three known user types.
func (u UserType) Valid() bool {
	_, err := u.Code()
	return err == nil
}

// Category is the finalized tax category of a ledger row. Categorization
// (confidence scoring, manual overrides) happens upstream; rows arrive here
// with their category already decided.
type Category string

const (
	CategoryIncome   Category = "income"   // professional income (external inflows)
	CategoryGains    Category = "gains"    // VDA disposal gains
	CategoryLosses   Category = "losses"   // VDA disposal losses, reporting only
	CategoryFees     Category = "fees"     // gas and transaction fees paid
	CategoryInternal Category = "internal" // transfers between the user's own wallets
	CategoryUnknown  Category = "unknown"  // unclassified, needs review
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryIncome, CategoryGains, CategoryLosses, CategoryFees, CategoryInternal, CategoryUnknown:
		return true
	}
	return false
}

// Direction of value flow relative to the owner wallet.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// LedgerRow is one normalized, chain-agnostic wallet transaction. Rows are
// immutable once submitted; amounts are decimal strings to preserve precision.
type LedgerRow struct {
	ChainID      uint64    `json:"chain_id"`
	OwnerWallet  string    `json:"owner_wallet"`
	TxHash       string    `json:"tx_hash"`
	BlockTime    uint64    `json:"block_time"`
	Asset        string    `json:"asset"`
	Amount       string    `json:"amount"`
	Decimals     uint8     `json:"decimals"`
	Direction    Direction `json:"direction"`
	Counterparty string    `json:"counterparty,omitempty"`
	Category     Category  `json:"category"`
	Confidence   float32   `json:"confidence"`
	UserOverride bool      `json:"user_override"`
}

// PriceEntry maps an asset symbol to its USD price as a decimal string.
type PriceEntry struct {
	Asset    string `json:"asset"`
	USDPrice string `json:"usd_price"`
}

// TaxRequest is the complete input for tax computation and proving.
type TaxRequest struct {
	UserType   UserType     `json:"user_type"`
	Wallets    []string     `json:"wallets"`
	Ledger     []LedgerRow  `json:"ledger"`
	Prices     []PriceEntry `json:"prices"`
	USDINRRate string       `json:"usd_inr_rate"`
	// Use44ADA applies presumptive taxation; only effective for individuals.
	Use44ADA bool `json:"use_44ada"`
}

// TaxBreakdown is the computed liability. All figures are INR decimal strings
// with two fractional digits, derived from integer paisa.
type TaxBreakdown struct {
	ProfessionalIncomeINR        string `json:"professional_income_inr"`
	TaxableProfessionalIncomeINR string `json:"taxable_professional_income_inr"`
	VDAGainsINR                  string `json:"vda_gains_inr"`
	VDALossesINR                 string `json:"vda_losses_inr"`
	ProfessionalTaxINR           string `json:"professional_tax_inr"`
	RebateINR                    string `json:"rebate_inr"`
	VDATaxINR                    string `json:"vda_tax_inr"`
	CessINR                      string `json:"cess_inr"`
	TotalTaxINR                  string `json:"total_tax_inr"`

	// TotalTaxPaisa is the total as an integer paisa decimal string, the
	// exact figure committed into the proof's public values.
	TotalTaxPaisa string `json:"total_tax_paisa"`
}

// Commitment is the 32-byte hash binding a specific tax request.
type Commitment [32]byte

// Hex returns the lowercase hex encoding without a 0x prefix.
func (c Commitment) Hex() string {
	return hex.EncodeToString(c[:])
}

func (c Commitment) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

func (c *Commitment) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return c.FromHex(s)
}

// FromHex parses a 64-character hex string (optional 0x prefix) into c.
func (c *Commitment) FromHex(s string) error {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid commitment hex: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("invalid commitment length %d, want 32", len(b))
	}
	copy(c[:], b)
	return nil
}
