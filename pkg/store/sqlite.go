package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/pawnledger/pkg/models"
	"github.com/rs/zerolog/log"

	_ "github.com/mattn/go-sqlite3"
)

// Calendar dates are stored as plain text so no timezone is ever attached.
const dateLayout = time.DateOnly

var ErrDateOutOfRange = errors.New("date cannot be stored")

// SQLiteStore keeps the loan book in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dataSourceName.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Info().Str("path", dataSourceName).Msg("Database connection established and schema initialized")
	return s, nil
}

// initSchema creates the tables if they don't already exist.
// Money is TEXT so no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		customer_id TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		customer_phone TEXT NOT NULL DEFAULT '',
		customer_id_card TEXT NOT NULL DEFAULT '',
		device_brand TEXT NOT NULL DEFAULT '',
		device_model TEXT NOT NULL DEFAULT '',
		device_imei TEXT NOT NULL DEFAULT '',
		device_condition TEXT NOT NULL DEFAULT '',
		device_estimated_value TEXT NOT NULL DEFAULT '0',
		principal TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		interest_rate_basis TEXT NOT NULL,
		origin_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		last_interest_settled_date TEXT,
		residual_credit TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		private_notes TEXT NOT NULL DEFAULT '',
		is_no_paper INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		date DATETIME NOT NULL,
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(loan_id) REFERENCES loans(id)
	);
	CREATE INDEX IF NOT EXISTS idx_payments_loan ON payments(loan_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadLoans reads the whole loan book.
func (s *SQLiteStore) LoadLoans() ([]*models.Loan, error) {
	rows, err := s.db.Query(`SELECT id, customer_id, customer_name, customer_phone, customer_id_card,
		device_brand, device_model, device_imei, device_condition, device_estimated_value,
		principal, interest_rate, interest_rate_basis, origin_date, due_date, last_interest_settled_date,
		residual_credit, status, notes, private_notes, is_no_paper, created_at, updated_at
		FROM loans ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans: %w", err)
	}
	defer rows.Close()

	loans, err := s.scanLoans(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.Loan, len(loans))
	for _, loan := range loans {
		byID[loan.ID] = loan
	}
	if err := s.attachPayments(byID); err != nil {
		return nil, err
	}
	return loans, nil
}

func (s *SQLiteStore) scanLoans(rows *sql.Rows) ([]*models.Loan, error) {
	loans := []*models.Loan{}
	for rows.Next() {
		var loan models.Loan
		var loanIDStr, customerIDStr, basis, status string
		var origin, due string
		var settled sql.NullString
		if err := rows.Scan(&loanIDStr, &customerIDStr, &loan.Customer.Name, &loan.Customer.Phone, &loan.Customer.IDCard,
			&loan.Device.Brand, &loan.Device.Model, &loan.Device.IMEI, &loan.Device.Condition, &loan.Device.EstimatedValue,
			&loan.Principal, &loan.InterestRate, &basis, &origin, &due, &settled,
			&loan.ResidualCredit, &status, &loan.Notes, &loan.PrivateNotes, &loan.IsNoPaper, &loan.CreatedAt, &loan.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}

		var err error
		if loan.ID, err = uuid.Parse(loanIDStr); err != nil {
			return nil, fmt.Errorf("invalid loan id %q: %w", loanIDStr, err)
		}
		if loan.Customer.ID, err = uuid.Parse(customerIDStr); err != nil {
			return nil, fmt.Errorf("invalid customer id %q on loan %s: %w", customerIDStr, loan.ID, err)
		}
		if loan.OriginDate, err = time.Parse(dateLayout, origin); err != nil {
			return nil, fmt.Errorf("invalid origin date on loan %s: %w", loan.ID, err)
		}
		if loan.DueDate, err = time.Parse(dateLayout, due); err != nil {
			return nil, fmt.Errorf("invalid due date on loan %s: %w", loan.ID, err)
		}
		if settled.Valid {
			d, err := time.Parse(dateLayout, settled.String)
			if err != nil {
				return nil, fmt.Errorf("invalid settled date on loan %s: %w", loan.ID, err)
			}
			loan.LastInterestSettledDate = &d
		}
		loan.InterestRateBasis = models.RateBasis(basis)
		loan.Status = models.Status(status)
		loan.Payments = []models.Payment{}
		loans = append(loans, &loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

// attachPayments fills in each loan's ledger in insertion order.
func (s *SQLiteStore) attachPayments(byID map[uuid.UUID]*models.Loan) error {
	rows, err := s.db.Query(`SELECT id, loan_id, date, amount, kind, note FROM payments ORDER BY loan_id, seq ASC`)
	if err != nil {
		return fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payment models.Payment
		var paymentIDStr, loanIDStr, kind string
		if err := rows.Scan(&paymentIDStr, &loanIDStr, &payment.Date, &payment.Amount, &kind, &payment.Note); err != nil {
			return fmt.Errorf("failed to scan payment row: %w", err)
		}
		var err error
		if payment.ID, err = uuid.Parse(paymentIDStr); err != nil {
			return fmt.Errorf("invalid payment id %q: %w", paymentIDStr, err)
		}
		if payment.LoanID, err = uuid.Parse(loanIDStr); err != nil {
			return fmt.Errorf("invalid loan id %q on payment %s: %w", loanIDStr, payment.ID, err)
		}
		payment.Kind = models.PaymentKind(kind)

		loan, ok := byID[payment.LoanID]
		if !ok {
			return fmt.Errorf("payment %s references unknown loan %s", payment.ID, payment.LoanID)
		}
		loan.Payments = append(loan.Payments, payment)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during rows iteration for payments: %w", err)
	}
	return nil
}

// SaveLoans replaces the stored loan book with loans inside one transaction,
// so a failed save leaves the previous book intact.
func (s *SQLiteStore) SaveLoans(loans []*models.Loan) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM payments`); err != nil {
		return fmt.Errorf("failed to clear payments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM loans`); err != nil {
		return fmt.Errorf("failed to clear loans: %w", err)
	}

	loanStmt, err := tx.Prepare(`INSERT INTO loans (id, position, customer_id, customer_name, customer_phone, customer_id_card,
		device_brand, device_model, device_imei, device_condition, device_estimated_value,
		principal, interest_rate, interest_rate_basis, origin_date, due_date, last_interest_settled_date,
		residual_credit, status, notes, private_notes, is_no_paper, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare loan insert: %w", err)
	}
	defer loanStmt.Close()

	paymentStmt, err := tx.Prepare(`INSERT INTO payments (id, loan_id, seq, date, amount, kind, note) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare payment insert: %w", err)
	}
	defer paymentStmt.Close()

	for i, loan := range loans {
		if err := checkDates(loan); err != nil {
			return err
		}
		var settled sql.NullString
		if loan.LastInterestSettledDate != nil {
			settled = sql.NullString{String: loan.LastInterestSettledDate.Format(dateLayout), Valid: true}
		}
		_, err := loanStmt.Exec(
			loan.ID.String(), i, loan.Customer.ID.String(), loan.Customer.Name, loan.Customer.Phone, loan.Customer.IDCard,
			loan.Device.Brand, loan.Device.Model, loan.Device.IMEI, loan.Device.Condition, loan.Device.EstimatedValue,
			loan.Principal, loan.InterestRate, string(loan.InterestRateBasis), loan.OriginDate.Format(dateLayout), loan.DueDate.Format(dateLayout), settled,
			loan.ResidualCredit, string(loan.Status), loan.Notes, loan.PrivateNotes, loan.IsNoPaper, loan.CreatedAt, loan.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save loan %s: %w", loan.ID, err)
		}

		for seq, payment := range loan.Payments {
			_, err := paymentStmt.Exec(payment.ID.String(), loan.ID.String(), seq, payment.Date, payment.Amount, string(payment.Kind), payment.Note)
			if err != nil {
				return fmt.Errorf("failed to save payment %s of loan %s: %w", payment.ID, loan.ID, err)
			}
		}
	}

	return tx.Commit()
}

// checkDates refuses calendar dates that would not parse back as
// YYYY-MM-DD, so one bad loan can never make the whole book unreadable.
func checkDates(loan *models.Loan) error {
	dates := map[string]time.Time{"origin": loan.OriginDate, "due": loan.DueDate}
	if loan.LastInterestSettledDate != nil {
		dates["settled"] = *loan.LastInterestSettledDate
	}
	for name, d := range dates {
		if y := d.Year(); y < 1 || y > 9999 {
			return fmt.Errorf("%w: %s date of loan %s has year %d", ErrDateOutOfRange, name, loan.ID, y)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
