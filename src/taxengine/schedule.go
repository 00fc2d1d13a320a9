package taxengine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
)

// Slab is one bracket of a progressive rate schedule. UpToPaisa is the upper
// bound of the bracket in paisa; 0 means unbounded (must be the last slab).
type Slab struct {
	UpToPaisa int64 `json:"up_to_paisa"`
	RateBp    int64 `json:"rate_bp"`
}

// RateSchedule is the authoritative rate table. It is configuration, not
// code: the defaults below mirror the published table and deployments load
// the current year's figures from TAX_RATES_PATH.
type RateSchedule struct {
	// Slabs keyed by user type ("individual", "huf", "corporate").
	Slabs map[string][]Slab `json:"slabs"`
	// RebateThresholdPaisa is the taxable-income cutoff under which an
	// individual's slab tax is fully rebated.
	RebateThresholdPaisa int64 `json:"rebate_threshold_paisa"`
	// PresumptiveRateBp is the share of gross professional receipts deemed
	// taxable under presumptive taxation (44ADA), in basis points.
	PresumptiveRateBp int64 `json:"presumptive_rate_bp"`
	// VDARateBp is the flat virtual-digital-asset gains rate.
	VDARateBp int64 `json:"vda_rate_bp"`
	// CessRateBp is the health and education cess on the tax subtotal.
	CessRateBp int64 `json:"cess_rate_bp"`
	// NonVDAAssets lists asset symbols excluded from VDA treatment. Every
	// asset not listed is treated as a VDA.
	NonVDAAssets []string `json:"non_vda_assets"`
}

// DefaultSchedule returns the built-in new-regime table: individual and HUF
// slabs 0/5/10/15/20/30% in three-lakh steps, corporate flat 30%, rebate up
// to 7,00,000, 50% presumptive rate, 30% VDA rate, 4% cess.
func DefaultSchedule() *RateSchedule {
	progressive := []Slab{
		{UpToPaisa: 3_00_000_00, RateBp: 0},
		{UpToPaisa: 6_00_000_00, RateBp: 500},
		{UpToPaisa: 9_00_000_00, RateBp: 1000},
		{UpToPaisa: 12_00_000_00, RateBp: 1500},
		{UpToPaisa: 15_00_000_00, RateBp: 2000},
		{UpToPaisa: 0, RateBp: 3000},
	}
	return &RateSchedule{
		Slabs: map[string][]Slab{
			string(models.UserTypeIndividual): progressive,
			string(models.UserTypeHUF):        progressive,
			string(models.UserTypeCorporate):  {{UpToPaisa: 0, RateBp: 3000}},
		},
		RebateThresholdPaisa: 7_00_000_00,
		PresumptiveRateBp:    5000,
		VDARateBp:            3000,
		CessRateBp:           400,
	}
}

// LoadSchedule loads a rate schedule from the specified file path.
// This should be called once from main.go after config is loaded.
func LoadSchedule(filePath string) (*RateSchedule, error) {
	logger.L.Info("Loading tax rate schedule", "path", filePath)
	file, err := os.ReadFile(filePath)
	if err != nil {
		logger.L.Error("Error reading tax rate schedule file", "path", filePath, "error", err)
		return nil, fmt.Errorf("error reading tax rate schedule file '%s': %w", filePath, err)
	}

	var schedule RateSchedule
	if err := json.Unmarshal(file, &schedule); err != nil {
		logger.L.Error("Error unmarshalling tax rate schedule", "path", filePath, "error", err)
		return nil, fmt.Errorf("error unmarshalling tax rate schedule from '%s': %w", filePath, err)
	}
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tax rate schedule in '%s': %w", filePath, err)
	}
	logger.L.Info("Tax rate schedule loaded successfully.", "path", filePath, "userTypes", len(schedule.Slabs))
	return &schedule, nil
}

// Validate checks structural soundness: every user type has slabs, bounds
// strictly increase, only the final slab is unbounded, rates are sane.
func (s *RateSchedule) Validate() error {
	for _, ut := range []models.UserType{models.UserTypeIndividual, models.UserTypeHUF, models.UserTypeCorporate} {
		slabs, ok := s.Slabs[string(ut)]
		if !ok || len(slabs) == 0 {
			return fmt.Errorf("no slabs configured for user type %q", ut)
		}
		prev := int64(0)
		for i, slab := range slabs {
			last := i == len(slabs)-1
			if last {
				if slab.UpToPaisa != 0 {
					return fmt.Errorf("final slab for %q must be unbounded (up_to_paisa = 0)", ut)
				}
			} else {
				if slab.UpToPaisa <= prev {
					return fmt.Errorf("slab bounds for %q must strictly increase", ut)
				}
				prev = slab.UpToPaisa
			}
			if slab.RateBp < 0 || slab.RateBp > 10000 {
				return fmt.Errorf("slab rate %d bp for %q out of range", slab.RateBp, ut)
			}
		}
	}
	for name, bp := range map[string]int64{
		"presumptive_rate_bp": s.PresumptiveRateBp,
		"vda_rate_bp":         s.VDARateBp,
		"cess_rate_bp":        s.CessRateBp,
	} {
		if bp < 0 || bp > 10000 {
			return fmt.Errorf("%s %d out of range", name, bp)
		}
	}
	if s.RebateThresholdPaisa < 0 {
		return fmt.Errorf("rebate_threshold_paisa must not be negative")
	}
	return nil
}

func (s *RateSchedule) slabsFor(ut models.UserType) []Slab {
	return s.Slabs[string(ut)]
}

// IsVDA reports whether the asset receives virtual-digital-asset treatment.
func (s *RateSchedule) IsVDA(asset string) bool {
	for _, a := range s.NonVDAAssets {
		if a == asset {
			return false
		}
	}
	return true
}
