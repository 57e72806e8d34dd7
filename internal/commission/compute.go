// Package commission turns a resolved rate slab and a transaction amount into
// concrete money figures for every party in the chain.
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"paynet-platform/internal/scheme"
)

// Component is one computed money figure plus the rate it came from, kept for
// remarks and audit trails.
type Component struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
	Type   scheme.RateType `json:"type"`
}

// Breakdown is the full pricing of one transaction. RetailerCharge is debited
// from the retailer; the commissions are credited up the chain; CompanyCharge
// is credited to the company revenue account.
type Breakdown struct {
	Base decimal.Decimal `json:"base"`

	RetailerCharge        Component `json:"retailer_charge"`
	RetailerCommission    Component `json:"retailer_commission"`
	DistributorCommission Component `json:"distributor_commission"`
	MDCommission          Component `json:"md_commission"`
	CompanyCharge         Component `json:"company_charge"`
}

// apply resolves a stored slab value against the base amount. Percentage
// values are per hundred and the result is rounded half-up to two places, so
// 0.5% of 333.33 is 1.67, not 1.66665.
func apply(base, value decimal.Decimal, rateType scheme.RateType) (Component, error) {
	c := Component{Rate: value, Type: rateType}
	switch rateType {
	case scheme.RateFlat:
		c.Amount = value.Round(2)
	case scheme.RatePercentage:
		c.Amount = base.Mul(value).Div(decimal.NewFromInt(100)).Round(2)
	default:
		return Component{}, fmt.Errorf("commission: unknown rate type %q", rateType)
	}
	if c.Amount.IsNegative() {
		return Component{}, fmt.Errorf("commission: negative component amount %s", c.Amount)
	}
	return c, nil
}

// ComputeBBPS prices a BBPS bill payment against a resolved slab.
func ComputeBBPS(base decimal.Decimal, slab scheme.BBPSCommissionSlab) (Breakdown, error) {
	return compute(base, componentSpec{
		retailerCharge:        rated{slab.RetailerCharge, slab.RetailerChargeType},
		retailerCommission:    rated{slab.RetailerCommission, slab.RetailerCommissionType},
		distributorCommission: rated{slab.DistributorCommission, slab.DistributorCommissionType},
		mdCommission:          rated{slab.MDCommission, slab.MDCommissionType},
		companyCharge:         rated{slab.CompanyCharge, slab.CompanyChargeType},
	})
}

// ComputePayout prices a payout transfer against a resolved slab.
func ComputePayout(base decimal.Decimal, slab scheme.PayoutChargeSlab) (Breakdown, error) {
	return compute(base, componentSpec{
		retailerCharge:        rated{slab.RetailerCharge, slab.RetailerChargeType},
		retailerCommission:    rated{slab.RetailerCommission, slab.RetailerCommissionType},
		distributorCommission: rated{slab.DistributorCommission, slab.DistributorCommissionType},
		mdCommission:          rated{slab.MDCommission, slab.MDCommissionType},
		companyCharge:         rated{slab.CompanyCharge, slab.CompanyChargeType},
	})
}

// ComputeMDR prices a POS/UPI capture. MDR rates are always percentages; the
// tier decides which column applies. The retailer pays the MDR as a charge;
// distributor and MD rates are their commission share of that charge.
func ComputeMDR(base decimal.Decimal, mdr scheme.ResolvedMDR, t0 bool) (Breakdown, error) {
	pick := func(r scheme.TierRate) decimal.Decimal {
		if t0 {
			return r.T0
		}
		return r.T1
	}
	return compute(base, componentSpec{
		retailerCharge:        rated{pick(mdr.Retailer), scheme.RatePercentage},
		distributorCommission: rated{pick(mdr.Distributor), scheme.RatePercentage},
		mdCommission:          rated{pick(mdr.MD), scheme.RatePercentage},
	})
}

type rated struct {
	value    decimal.Decimal
	rateType scheme.RateType
}

type componentSpec struct {
	retailerCharge        rated
	retailerCommission    rated
	distributorCommission rated
	mdCommission          rated
	companyCharge         rated
}

func compute(base decimal.Decimal, spec componentSpec) (Breakdown, error) {
	if base.IsNegative() {
		return Breakdown{}, fmt.Errorf("commission: negative base amount %s", base)
	}
	b := Breakdown{Base: base}

	fields := []struct {
		dst *Component
		src rated
	}{
		{&b.RetailerCharge, spec.retailerCharge},
		{&b.RetailerCommission, spec.retailerCommission},
		{&b.DistributorCommission, spec.distributorCommission},
		{&b.MDCommission, spec.mdCommission},
		{&b.CompanyCharge, spec.companyCharge},
	}
	for _, f := range fields {
		if f.src.value.IsZero() && f.src.rateType == "" {
			// Component absent from the slab; leave a zero flat component.
			f.dst.Type = scheme.RateFlat
			continue
		}
		c, err := apply(base, f.src.value, f.src.rateType)
		if err != nil {
			return Breakdown{}, err
		}
		*f.dst = c
	}
	return b, nil
}
