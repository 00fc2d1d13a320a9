package taxengine

import (
	"fmt"
	"math/big"

	"github.com/financoor/backend/src/models"
)

// Engine computes a tax breakdown from a validated request. It is pure and
// stateless: the same request against the same schedule always yields the
// same breakdown, which is what makes the result provable.
type Engine struct {
	schedule *RateSchedule
}

func New(schedule *RateSchedule) *Engine {
	return &Engine{schedule: schedule}
}

// Schedule returns the rate schedule the engine was built with.
func (e *Engine) Schedule() *RateSchedule {
	return e.schedule
}

// Compute derives the full tax breakdown for the request.
//
// Every row amount is converted to integer paisa via
// amount * usd_price * usd_inr_rate, exactly. Category income feeds
// professional income; categories gains/losses on VDA assets feed the VDA
// aggregates; fees, internal and unknown rows are validated but excluded
// from every aggregate. VDA losses are reported but never offset gains or
// income. Cess applies to (slab tax - rebate + VDA tax) and the total is
// slab tax - rebate + VDA tax + cess.
func (e *Engine) Compute(req *models.TaxRequest) (*models.TaxBreakdown, error) {
	if !req.UserType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedUserType, req.UserType)
	}

	rate, err := parseDecimal(req.USDINRRate)
	if err != nil {
		return nil, &InvalidAmountError{Field: "usd_inr_rate", Value: req.USDINRRate}
	}

	prices := make(map[string]decimal, len(req.Prices))
	for _, p := range req.Prices {
		d, err := parseDecimal(p.USDPrice)
		if err != nil {
			return nil, &InvalidAmountError{Field: "usd_price", Value: p.USDPrice, Asset: p.Asset}
		}
		prices[p.Asset] = d
	}

	income := new(big.Int)
	vdaGains := new(big.Int)
	vdaLosses := new(big.Int)

	for i := range req.Ledger {
		row := &req.Ledger[i]
		if !row.Category.Valid() {
			return nil, &InvalidRowError{TxHash: row.TxHash, Field: "category", Value: string(row.Category)}
		}
		if row.Direction != models.DirectionIn && row.Direction != models.DirectionOut {
			return nil, &InvalidRowError{TxHash: row.TxHash, Field: "direction", Value: string(row.Direction)}
		}
		amount, err := parseDecimal(row.Amount)
		if err != nil {
			return nil, &InvalidAmountError{TxHash: row.TxHash, Field: "amount", Value: row.Amount}
		}

		switch row.Category {
		case models.CategoryIncome, models.CategoryGains, models.CategoryLosses:
			price, ok := prices[row.Asset]
			if !ok {
				return nil, &MissingPriceError{Asset: row.Asset}
			}
			paisa := mulToPaisa(amount, price, rate)
			switch {
			case row.Category == models.CategoryIncome:
				income.Add(income, paisa)
			case row.Category == models.CategoryGains && e.schedule.IsVDA(row.Asset):
				vdaGains.Add(vdaGains, paisa)
			case row.Category == models.CategoryLosses && e.schedule.IsVDA(row.Asset):
				vdaLosses.Add(vdaLosses, paisa)
			}
		default:
			// fees, internal and unknown rows are never taxed.
		}
	}

	taxable := new(big.Int).Set(income)
	if req.UserType == models.UserTypeIndividual && req.Use44ADA {
		taxable = applyBasisPoints(income, e.schedule.PresumptiveRateBp)
	}

	slabTax := e.slabTax(req.UserType, taxable)

	rebate := new(big.Int)
	if req.UserType == models.UserTypeIndividual {
		totalTaxable := new(big.Int).Add(taxable, vdaGains)
		if totalTaxable.Cmp(big.NewInt(e.schedule.RebateThresholdPaisa)) <= 0 {
			rebate.Set(slabTax)
		}
	}

	vdaTax := applyBasisPoints(vdaGains, e.schedule.VDARateBp)

	subtotal := new(big.Int).Sub(slabTax, rebate)
	subtotal.Add(subtotal, vdaTax)
	cess := applyBasisPoints(subtotal, e.schedule.CessRateBp)
	total := new(big.Int).Add(subtotal, cess)

	return &models.TaxBreakdown{
		ProfessionalIncomeINR:        formatINR(income),
		TaxableProfessionalIncomeINR: formatINR(taxable),
		VDAGainsINR:                  formatINR(vdaGains),
		VDALossesINR:                 formatINR(vdaLosses),
		ProfessionalTaxINR:           formatINR(slabTax),
		RebateINR:                    formatINR(rebate),
		VDATaxINR:                    formatINR(vdaTax),
		CessINR:                      formatINR(cess),
		TotalTaxINR:                  formatINR(total),
		TotalTaxPaisa:                total.String(),
	}, nil
}

// slabTax applies the progressive schedule to taxable income. Per-slab
// contributions accumulate unrounded in basis-point units and are rounded
// half-up once at the end.
func (e *Engine) slabTax(ut models.UserType, taxable *big.Int) *big.Int {
	acc := new(big.Int)
	lower := new(big.Int)
	for _, slab := range e.schedule.slabsFor(ut) {
		var portion *big.Int
		if slab.UpToPaisa == 0 {
			portion = new(big.Int).Sub(taxable, lower)
		} else {
			upper := big.NewInt(slab.UpToPaisa)
			capped := taxable
			if taxable.Cmp(upper) > 0 {
				capped = upper
			}
			portion = new(big.Int).Sub(capped, lower)
			lower = upper
		}
		if portion.Sign() <= 0 {
			break
		}
		acc.Add(acc, portion.Mul(portion, big.NewInt(slab.RateBp)))
	}
	return divHalfUp(acc, big.NewInt(10000))
}
