// Package dispatch implements the stage dispatcher: it builds a sanitized
// snapshot of a loan application and hands it to the external analysis-worker
// service, which executes the underwriting stages asynchronously and reports
// back through workflow callbacks.
package dispatch

import (
	"fmt"

	"github.com/meridian-lending/underwriter/internal/applications"
)

// Fixed placeholder tokens substituted for PII in worker-bound snapshots.
const (
	NamePlaceholder    = "[APPLICANT_NAME]"
	AddressPlaceholder = "[ADDRESS]"
)

// Snapshot is the PII-redacted view of one application handed to the
// external worker. Identity fields carry fixed placeholders, SSNs are
// reduced to the masked last-four, and street addresses are redacted.
type Snapshot struct {
	CaseID    string            `json:"case_id"`
	Loan      LoanTerms         `json:"loan"`
	Borrowers []BorrowerProfile `json:"borrowers"`
	Property  *PropertyProfile  `json:"property"`
}

// LoanTerms summarizes the requested loan.
type LoanTerms struct {
	Type             string  `json:"type"`
	Purpose          string  `json:"purpose"`
	Amount           float64 `json:"amount"`
	DownPayment      float64 `json:"down_payment"`
	TermMonths       int     `json:"term_months"`
	EstimatedPayment float64 `json:"estimated_payment"`
	Occupancy        string  `json:"occupancy"`
}

// BorrowerProfile is one borrower's sanitized financial picture.
type BorrowerProfile struct {
	Type             string             `json:"type"`
	Name             string             `json:"name"`
	SSN              string             `json:"ssn"`
	Address          string             `json:"address"`
	Credit           *CreditSummary     `json:"credit,omitempty"`
	Employment       []EmploymentEntry  `json:"employment"`
	Assets           map[string]float64 `json:"assets"`
	Debts            map[string]float64 `json:"debts"`
	TotalMonthlyDebt float64            `json:"total_monthly_debt"`
	LargeDeposits    []DepositEntry     `json:"large_deposits"`
}

// CreditSummary mirrors the borrower's credit profile.
type CreditSummary struct {
	Score             int     `json:"score"`
	Bankruptcies      int     `json:"bankruptcies"`
	Foreclosures      int     `json:"foreclosures"`
	LatePayments12mo  int     `json:"late_payments_12mo"`
	CollectionsCount  int     `json:"collections_count"`
	CollectionsAmount float64 `json:"collections_amount"`
}

// EmploymentEntry is one current employment record.
type EmploymentEntry struct {
	Type          string  `json:"type"`
	Years         float64 `json:"years"`
	MonthlyIncome float64 `json:"monthly_income"`
	AnnualIncome  float64 `json:"annual_income"`
}

// DepositEntry is one large deposit flagged for sourcing.
type DepositEntry struct {
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Verified bool    `json:"verified"`
}

// PropertyProfile is the subject property with its address redacted.
type PropertyProfile struct {
	Type            string   `json:"type"`
	Address         string   `json:"address"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	YearBuilt       int      `json:"year_built"`
	SquareFeet      int      `json:"square_feet"`
	Bedrooms        int      `json:"bedrooms"`
	Bathrooms       float64  `json:"bathrooms"`
	Condition       string   `json:"condition"`
	PurchasePrice   float64  `json:"purchase_price"`
	AppraisedValue  *float64 `json:"appraised_value"`
	HOAMonthly      float64  `json:"hoa_monthly"`
	TaxesAnnual     float64  `json:"taxes_annual"`
	InsuranceAnnual float64  `json:"insurance_annual"`
	InFloodZone     bool     `json:"in_flood_zone"`
}

// BuildSnapshot assembles the sanitized snapshot from the application read
// model. It is a pure transformation: no I/O, no mutation of src, and no
// raw PII in the output.
func BuildSnapshot(src *applications.Source) Snapshot {
	snap := Snapshot{
		CaseID: src.Application.CaseID,
		Loan: LoanTerms{
			Type:             src.Application.LoanType,
			Purpose:          src.Application.LoanPurpose,
			Amount:           src.Application.LoanAmount,
			DownPayment:      src.Application.DownPayment,
			TermMonths:       src.Application.LoanTermMonths,
			EstimatedPayment: src.Application.EstimatedPayment,
			Occupancy:        src.Application.OccupancyType,
		},
		Borrowers: make([]BorrowerProfile, 0, len(src.Borrowers)),
	}

	for _, b := range src.Borrowers {
		snap.Borrowers = append(snap.Borrowers, buildBorrower(b))
	}

	if src.Property != nil {
		p := buildProperty(*src.Property)
		snap.Property = &p
	}

	return snap
}

func buildBorrower(b applications.Borrower) BorrowerProfile {
	profile := BorrowerProfile{
		Type:          b.Type,
		Name:          NamePlaceholder,
		SSN:           maskSSN(b.SSNLastFour),
		Address:       AddressPlaceholder,
		Employment:    make([]EmploymentEntry, 0),
		Assets:        make(map[string]float64),
		Debts:         make(map[string]float64),
		LargeDeposits: make([]DepositEntry, 0),
	}

	if b.Credit != nil {
		profile.Credit = &CreditSummary{
			Score:             b.Credit.Score,
			Bankruptcies:      b.Credit.Bankruptcies,
			Foreclosures:      b.Credit.Foreclosures,
			LatePayments12mo:  b.Credit.LatePayments12mo,
			CollectionsCount:  b.Credit.Collections,
			CollectionsAmount: b.Credit.CollectionsTotal,
		}
	}

	for _, emp := range b.Employments {
		if !emp.IsCurrent {
			continue
		}
		profile.Employment = append(profile.Employment, EmploymentEntry{
			Type:          emp.Type,
			Years:         emp.YearsEmployed,
			MonthlyIncome: emp.MonthlyIncome,
			AnnualIncome:  emp.AnnualIncome,
		})
	}

	for _, asset := range b.Assets {
		profile.Assets[asset.Type] += asset.CurrentBalance
	}

	for _, debt := range b.Liabilities {
		if !debt.IncludedInDTI {
			continue
		}
		profile.Debts[debt.Type] += debt.MonthlyPayment
		profile.TotalMonthlyDebt += debt.MonthlyPayment
	}

	for _, dep := range b.LargeDeposits {
		profile.LargeDeposits = append(profile.LargeDeposits, DepositEntry{
			Amount:   dep.Amount,
			Date:     dep.Date.Format("2006-01-02"),
			Verified: dep.Verified,
		})
	}

	return profile
}

func buildProperty(p applications.Property) PropertyProfile {
	return PropertyProfile{
		Type:            p.Type,
		Address:         AddressPlaceholder,
		City:            p.City,
		State:           p.State,
		YearBuilt:       p.YearBuilt,
		SquareFeet:      p.SquareFeet,
		Bedrooms:        p.Bedrooms,
		Bathrooms:       p.Bathrooms,
		Condition:       p.Condition,
		PurchasePrice:   p.PurchasePrice,
		AppraisedValue:  p.AppraisedValue,
		HOAMonthly:      p.HOAMonthly,
		TaxesAnnual:     p.TaxesAnnual,
		InsuranceAnnual: p.InsuranceAnnual,
		InFloodZone:     p.InFloodZone,
	}
}

func maskSSN(lastFour string) string {
	return fmt.Sprintf("***-**-%s", lastFour)
}
