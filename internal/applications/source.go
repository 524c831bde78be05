package applications

import (
	"time"

	"github.com/google/uuid"
)

// Source is the full read model for one application: everything the
// dispatcher's snapshot builder needs, loaded in a single call. Raw PII
// fields (names, street addresses, SSN last-four) are present here and
// must never leave the service unredacted.
type Source struct {
	Application LoanApplication
	Borrowers   []Borrower
	Property    *Property
}

// Borrower holds one borrower's identity and financial profile.
type Borrower struct {
	ID            uuid.UUID
	Type          string
	FirstName     string
	LastName      string
	SSNLastFour   string
	StreetAddress string
	City          string
	State         string
	ZipCode       string

	Credit        *CreditProfile
	Employments   []Employment
	Assets        []Asset
	Liabilities   []Liability
	LargeDeposits []LargeDeposit
}

// CreditProfile is the borrower's pulled credit summary.
type CreditProfile struct {
	Score            int
	Bankruptcies     int
	Foreclosures     int
	LatePayments12mo int
	Collections      int
	CollectionsTotal float64
}

// Employment is one employment record; only current employment feeds
// the snapshot.
type Employment struct {
	Type          string
	YearsEmployed float64
	MonthlyIncome float64
	AnnualIncome  float64
	IsCurrent     bool
}

// Asset is one borrower asset account.
type Asset struct {
	Type           string
	CurrentBalance float64
}

// Liability is one borrower debt; IncludedInDTI controls whether its
// payment counts toward the snapshot's monthly debt total.
type Liability struct {
	Type           string
	MonthlyPayment float64
	IncludedInDTI  bool
}

// LargeDeposit is an unexplained deposit flagged for sourcing.
type LargeDeposit struct {
	Amount   float64
	Date     time.Time
	Verified bool
}

// Property is the subject property for a purchase or refinance.
type Property struct {
	Type            string
	StreetAddress   string
	City            string
	State           string
	YearBuilt       int
	SquareFeet      int
	Bedrooms        int
	Bathrooms       float64
	Condition       string
	PurchasePrice   float64
	AppraisedValue  *float64
	HOAMonthly      float64
	TaxesAnnual     float64
	InsuranceAnnual float64
	InFloodZone     bool
}
