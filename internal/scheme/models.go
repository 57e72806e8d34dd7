package scheme

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scheme is a named bundle of commission/fee rules assignable to a
// distributor or retailer. Exactly one scheme with SchemeTypeGlobal should
// exist per deployment; it is the fallback when an entity has no mapping.
type Scheme struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	SchemeType   SchemeType   `json:"scheme_type" db:"scheme_type"`
	ServiceScope ServiceScope `json:"service_scope" db:"service_scope"`

	// Priority orders schemes in admin listings; resolution itself is driven
	// by the mapping, not by priority.
	Priority int `json:"priority" db:"priority"`

	CreatedByID   string `json:"created_by_id,omitempty" db:"created_by_id"`
	CreatedByRole string `json:"created_by_role,omitempty" db:"created_by_role"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type SchemeType string

const (
	SchemeTypeGlobal SchemeType = "global"
	SchemeTypeGolden SchemeType = "golden"
	SchemeTypeCustom SchemeType = "custom"
)

type ServiceScope string

const (
	ScopeAll    ServiceScope = "all"
	ScopeBBPS   ServiceScope = "bbps"
	ScopePayout ServiceScope = "payout"
	ScopeMDR    ServiceScope = "mdr"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Mapping assigns a scheme to one entity (retailer or distributor).
// Invariant: at most one active mapping per entity_id; assigning a new one
// deactivates the previous.
type Mapping struct {
	ID       string `json:"id" db:"id"`
	SchemeID string `json:"scheme_id" db:"scheme_id"`

	EntityID   string `json:"entity_id" db:"entity_id"`
	EntityRole string `json:"entity_role" db:"entity_role"`

	AssignedByID   string `json:"assigned_by_id,omitempty" db:"assigned_by_id"`
	AssignedByRole string `json:"assigned_by_role,omitempty" db:"assigned_by_role"`

	Status   Status `json:"status" db:"status"`
	Priority int    `json:"priority" db:"priority"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RateType says how a stored component value is applied to a base amount.
type RateType string

const (
	RateFlat       RateType = "flat"
	RatePercentage RateType = "percentage"
)

// BBPSCommissionSlab is one amount-range-bound row of BBPS rates.
// Category == "" is a wildcard matching any biller category.
type BBPSCommissionSlab struct {
	ID       string `json:"id" db:"id"`
	SchemeID string `json:"scheme_id" db:"scheme_id"`

	Category string `json:"category,omitempty" db:"category"`

	MinAmount decimal.Decimal `json:"min_amount" db:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount" db:"max_amount"`

	RetailerCharge     decimal.Decimal `json:"retailer_charge" db:"retailer_charge"`
	RetailerChargeType RateType        `json:"retailer_charge_type" db:"retailer_charge_type"`

	RetailerCommission     decimal.Decimal `json:"retailer_commission" db:"retailer_commission"`
	RetailerCommissionType RateType        `json:"retailer_commission_type" db:"retailer_commission_type"`

	DistributorCommission     decimal.Decimal `json:"distributor_commission" db:"distributor_commission"`
	DistributorCommissionType RateType        `json:"distributor_commission_type" db:"distributor_commission_type"`

	MDCommission     decimal.Decimal `json:"md_commission" db:"md_commission"`
	MDCommissionType RateType        `json:"md_commission_type" db:"md_commission_type"`

	CompanyCharge     decimal.Decimal `json:"company_charge" db:"company_charge"`
	CompanyChargeType RateType        `json:"company_charge_type" db:"company_charge_type"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PayoutChargeSlab mirrors BBPSCommissionSlab for payout transfers.
// TransferMode == "" is a wildcard matching any mode (IMPS/NEFT/RTGS/...).
type PayoutChargeSlab struct {
	ID       string `json:"id" db:"id"`
	SchemeID string `json:"scheme_id" db:"scheme_id"`

	TransferMode string `json:"transfer_mode,omitempty" db:"transfer_mode"`

	MinAmount decimal.Decimal `json:"min_amount" db:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount" db:"max_amount"`

	RetailerCharge     decimal.Decimal `json:"retailer_charge" db:"retailer_charge"`
	RetailerChargeType RateType        `json:"retailer_charge_type" db:"retailer_charge_type"`

	RetailerCommission     decimal.Decimal `json:"retailer_commission" db:"retailer_commission"`
	RetailerCommissionType RateType        `json:"retailer_commission_type" db:"retailer_commission_type"`

	DistributorCommission     decimal.Decimal `json:"distributor_commission" db:"distributor_commission"`
	DistributorCommissionType RateType        `json:"distributor_commission_type" db:"distributor_commission_type"`

	MDCommission     decimal.Decimal `json:"md_commission" db:"md_commission"`
	MDCommissionType RateType        `json:"md_commission_type" db:"md_commission_type"`

	CompanyCharge     decimal.Decimal `json:"company_charge" db:"company_charge"`
	CompanyChargeType RateType        `json:"company_charge_type" db:"company_charge_type"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MDRRate holds card/UPI MDR percentages per settlement tier.
// Empty dimension fields are wildcards.
type MDRRate struct {
	ID       string `json:"id" db:"id"`
	SchemeID string `json:"scheme_id" db:"scheme_id"`

	Mode               MDRMode `json:"mode" db:"mode"`
	CardType           string  `json:"card_type,omitempty" db:"card_type"`
	BrandType          string  `json:"brand_type,omitempty" db:"brand_type"`
	CardClassification string  `json:"card_classification,omitempty" db:"card_classification"`

	RetailerMDRT1 decimal.Decimal `json:"retailer_mdr_t1" db:"retailer_mdr_t1"`
	RetailerMDRT0 decimal.Decimal `json:"retailer_mdr_t0" db:"retailer_mdr_t0"`

	DistributorMDRT1 decimal.Decimal `json:"distributor_mdr_t1" db:"distributor_mdr_t1"`
	DistributorMDRT0 decimal.Decimal `json:"distributor_mdr_t0" db:"distributor_mdr_t0"`

	MDMDRT1 decimal.Decimal `json:"md_mdr_t1" db:"md_mdr_t1"`
	MDMDRT0 decimal.Decimal `json:"md_mdr_t0" db:"md_mdr_t0"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type MDRMode string

const (
	MDRModeCard MDRMode = "CARD"
	MDRModeUPI  MDRMode = "UPI"
)

// MDRDimension identifies one card/UPI pricing cell.
type MDRDimension struct {
	Mode               MDRMode
	CardType           string
	BrandType          string
	CardClassification string
}

// TierRate is an MDR pair after the T0 fallback has been applied.
type TierRate struct {
	T1 decimal.Decimal `json:"t1"`
	T0 decimal.Decimal `json:"t0"`
}

// ResolvedMDR is the effective per-role MDR for one dimension.
type ResolvedMDR struct {
	SchemeID string `json:"scheme_id"`
	RateID   string `json:"rate_id"`

	Retailer    TierRate `json:"retailer"`
	Distributor TierRate `json:"distributor"`
	MD          TierRate `json:"md"`
}
