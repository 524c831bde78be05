package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/meridian-lending/underwriter/internal/applications"
)

func sampleSource() *applications.Source {
	appraised := 452000.0
	return &applications.Source{
		Application: applications.LoanApplication{
			CaseID:           "UW-2024-0042",
			LoanType:         "conventional",
			LoanPurpose:      "purchase",
			LoanAmount:       360000,
			DownPayment:      90000,
			LoanTermMonths:   360,
			EstimatedPayment: 2310.55,
			OccupancyType:    "primary",
		},
		Borrowers: []applications.Borrower{
			{
				Type:          "primary",
				FirstName:     "Dana",
				LastName:      "Whitfield",
				SSNLastFour:   "1234",
				StreetAddress: "18 Alder Court",
				City:          "Portland",
				State:         "OR",
				Credit: &applications.CreditProfile{
					Score:            742,
					LatePayments12mo: 1,
				},
				Employments: []applications.Employment{
					{Type: "w2", YearsEmployed: 6.5, MonthlyIncome: 9100, AnnualIncome: 109200, IsCurrent: true},
					{Type: "w2", YearsEmployed: 2, MonthlyIncome: 5400, AnnualIncome: 64800, IsCurrent: false},
				},
				Assets: []applications.Asset{
					{Type: "checking", CurrentBalance: 24000},
					{Type: "checking", CurrentBalance: 6000},
					{Type: "retirement", CurrentBalance: 88000},
				},
				Liabilities: []applications.Liability{
					{Type: "auto_loan", MonthlyPayment: 480, IncludedInDTI: true},
					{Type: "credit_card", MonthlyPayment: 210, IncludedInDTI: true},
					{Type: "paid_collection", MonthlyPayment: 95, IncludedInDTI: false},
				},
				LargeDeposits: []applications.LargeDeposit{
					{Amount: 12000, Date: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), Verified: false},
				},
			},
		},
		Property: &applications.Property{
			Type:          "single_family",
			StreetAddress: "401 Crestline Drive",
			City:          "Portland",
			State:         "OR",
			YearBuilt:     1987,
			PurchasePrice: 450000,
			AppraisedValue: &appraised,
		},
	}
}

func TestBuildSnapshotRedactsPII(t *testing.T) {
	snap := BuildSnapshot(sampleSource())

	b := snap.Borrowers[0]
	if b.Name != NamePlaceholder {
		t.Errorf("Name = %q, want %q", b.Name, NamePlaceholder)
	}
	if b.Address != AddressPlaceholder {
		t.Errorf("Address = %q, want %q", b.Address, AddressPlaceholder)
	}
	if b.SSN != "***-**-1234" {
		t.Errorf("SSN = %q, want masked last-four", b.SSN)
	}
	if snap.Property.Address != AddressPlaceholder {
		t.Errorf("property address = %q, want %q", snap.Property.Address, AddressPlaceholder)
	}
	if snap.Property.City != "Portland" || snap.Property.State != "OR" {
		t.Error("city and state must survive redaction")
	}
}

func TestBuildSnapshotAggregatesFinancials(t *testing.T) {
	snap := BuildSnapshot(sampleSource())
	b := snap.Borrowers[0]

	if len(b.Employment) != 1 {
		t.Fatalf("employment entries = %d, want current only", len(b.Employment))
	}
	if b.Employment[0].MonthlyIncome != 9100 {
		t.Errorf("monthly income = %v, want 9100", b.Employment[0].MonthlyIncome)
	}

	if b.Assets["checking"] != 30000 {
		t.Errorf("checking total = %v, want 30000", b.Assets["checking"])
	}
	if b.Assets["retirement"] != 88000 {
		t.Errorf("retirement total = %v, want 88000", b.Assets["retirement"])
	}

	// Non-DTI liabilities stay out of the debt total.
	if b.TotalMonthlyDebt != 690 {
		t.Errorf("total monthly debt = %v, want 690", b.TotalMonthlyDebt)
	}
	if _, ok := b.Debts["paid_collection"]; ok {
		t.Error("excluded liability must not appear in debts")
	}

	if len(b.LargeDeposits) != 1 || b.LargeDeposits[0].Date != "2024-03-14" {
		t.Errorf("large deposits = %+v, want one dated 2024-03-14", b.LargeDeposits)
	}
}

func TestBuildSnapshotDoesNotMutateSource(t *testing.T) {
	src := sampleSource()
	BuildSnapshot(src)

	if src.Borrowers[0].FirstName != "Dana" {
		t.Error("source borrower name was mutated")
	}
	if src.Property.StreetAddress != "401 Crestline Drive" {
		t.Error("source property address was mutated")
	}
}

func TestBuildSnapshotWithoutProperty(t *testing.T) {
	src := sampleSource()
	src.Property = nil

	snap := BuildSnapshot(src)
	if snap.Property != nil {
		t.Error("snapshot property should be nil for refinance-only sources")
	}
}

func TestMaskSSN(t *testing.T) {
	if got := maskSSN("9876"); !strings.HasSuffix(got, "9876") || strings.Contains(got, "98765") {
		t.Errorf("maskSSN = %q", got)
	}
}
