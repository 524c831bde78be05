package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-lending/underwriter/pkg/query"
	"github.com/meridian-lending/underwriter/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an application repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "applications"),
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*LoanApplication, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanApplication)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}

func (r *repo) Source(ctx context.Context, id uuid.UUID) (*Source, error) {
	app, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	borrowers, err := r.loadBorrowers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load borrowers: %w", err)
	}

	property, err := r.loadProperty(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load property: %w", err)
	}

	return &Source{
		Application: *app,
		Borrowers:   borrowers,
		Property:    property,
	}, nil
}

func (r *repo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE loan_applications SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("application status updated", "id", id, "status", status)
	return nil
}

func (r *repo) RecordDecision(ctx context.Context, id uuid.UUID, cmd DecisionUpdate) error {
	if cmd.Status != nil && !validStatuses[*cmd.Status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, *cmd.Status)
	}

	q := `
		UPDATE loan_applications
		SET ai_recommendation = $1,
			ai_risk_score = $2,
			ai_confidence_score = $3,
			requires_human_review = $4,
			human_review_completed = $5,
			status = COALESCE($6, status),
			decision_at = CASE WHEN $6::text IS NULL THEN decision_at ELSE $7 END,
			updated_at = NOW()
		WHERE id = $8`

	err := repository.ExecExpectOne(
		ctx, r.db, q,
		cmd.Recommendation,
		cmd.RiskScore,
		cmd.Confidence,
		cmd.RequiresHumanReview,
		cmd.HumanReviewCompleted,
		cmd.Status,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return nil
}

func (r *repo) loadBorrowers(ctx context.Context, applicationID uuid.UUID) ([]Borrower, error) {
	q := `
		SELECT id, borrower_type, first_name, last_name, ssn_last_four,
			street_address, city, state, zip_code
		FROM borrowers
		WHERE application_id = $1
		ORDER BY borrower_type, created_at`

	borrowers, err := repository.QueryMany(ctx, r.db, q, []any{applicationID}, scanBorrower)
	if err != nil {
		return nil, err
	}

	for i := range borrowers {
		if err := r.loadBorrowerDetail(ctx, &borrowers[i]); err != nil {
			return nil, err
		}
	}

	return borrowers, nil
}

func (r *repo) loadBorrowerDetail(ctx context.Context, b *Borrower) error {
	credit, err := repository.QueryOne(
		ctx, r.db,
		`SELECT credit_score, bankruptcies, foreclosures, late_payments_12mo,
			collections_count, collections_total_amount
		FROM credit_profiles WHERE borrower_id = $1`,
		[]any{b.ID}, scanCreditProfile,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// credit pull may not have happened yet
	case err != nil:
		return fmt.Errorf("credit profile: %w", err)
	default:
		b.Credit = &credit
	}

	b.Employments, err = repository.QueryMany(
		ctx, r.db,
		`SELECT employment_type, years_employed, monthly_income, annual_income, is_current
		FROM employments WHERE borrower_id = $1 ORDER BY years_employed DESC`,
		[]any{b.ID}, scanEmployment,
	)
	if err != nil {
		return fmt.Errorf("employments: %w", err)
	}

	b.Assets, err = repository.QueryMany(
		ctx, r.db,
		`SELECT asset_type, current_balance FROM assets WHERE borrower_id = $1`,
		[]any{b.ID}, scanAsset,
	)
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}

	b.Liabilities, err = repository.QueryMany(
		ctx, r.db,
		`SELECT liability_type, monthly_payment, included_in_dti
		FROM liabilities WHERE borrower_id = $1`,
		[]any{b.ID}, scanLiability,
	)
	if err != nil {
		return fmt.Errorf("liabilities: %w", err)
	}

	b.LargeDeposits, err = repository.QueryMany(
		ctx, r.db,
		`SELECT amount, deposit_date, verified
		FROM large_deposits WHERE borrower_id = $1 ORDER BY deposit_date`,
		[]any{b.ID}, scanLargeDeposit,
	)
	if err != nil {
		return fmt.Errorf("large deposits: %w", err)
	}

	return nil
}

func (r *repo) loadProperty(ctx context.Context, applicationID uuid.UUID) (*Property, error) {
	p, err := repository.QueryOne(
		ctx, r.db,
		`SELECT property_type, street_address, city, state, year_built, square_feet,
			bedrooms, bathrooms, condition, purchase_price, appraised_value,
			hoa_monthly, property_taxes_annual, insurance_annual, in_flood_zone
		FROM properties WHERE application_id = $1`,
		[]any{applicationID}, scanProperty,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanBorrower(s repository.Scanner) (Borrower, error) {
	var b Borrower
	err := s.Scan(
		&b.ID, &b.Type, &b.FirstName, &b.LastName, &b.SSNLastFour,
		&b.StreetAddress, &b.City, &b.State, &b.ZipCode,
	)
	return b, err
}

func scanCreditProfile(s repository.Scanner) (CreditProfile, error) {
	var c CreditProfile
	err := s.Scan(
		&c.Score, &c.Bankruptcies, &c.Foreclosures,
		&c.LatePayments12mo, &c.Collections, &c.CollectionsTotal,
	)
	return c, err
}

func scanEmployment(s repository.Scanner) (Employment, error) {
	var e Employment
	err := s.Scan(&e.Type, &e.YearsEmployed, &e.MonthlyIncome, &e.AnnualIncome, &e.IsCurrent)
	return e, err
}

func scanAsset(s repository.Scanner) (Asset, error) {
	var a Asset
	err := s.Scan(&a.Type, &a.CurrentBalance)
	return a, err
}

func scanLiability(s repository.Scanner) (Liability, error) {
	var l Liability
	err := s.Scan(&l.Type, &l.MonthlyPayment, &l.IncludedInDTI)
	return l, err
}

func scanLargeDeposit(s repository.Scanner) (LargeDeposit, error) {
	var d LargeDeposit
	err := s.Scan(&d.Amount, &d.Date, &d.Verified)
	return d, err
}

func scanProperty(s repository.Scanner) (Property, error) {
	var p Property
	err := s.Scan(
		&p.Type, &p.StreetAddress, &p.City, &p.State, &p.YearBuilt, &p.SquareFeet,
		&p.Bedrooms, &p.Bathrooms, &p.Condition, &p.PurchasePrice, &p.AppraisedValue,
		&p.HOAMonthly, &p.TaxesAnnual, &p.InsuranceAnnual, &p.InFloodZone,
	)
	return p, err
}
