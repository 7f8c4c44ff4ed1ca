package store

import (
	"database/sql"
	"fmt"

	"github.com/jmhart/storyarc/internal/fault"
)

// EnsureAccount creates the user's credit account with the starting
// balance if it does not exist yet. Existing balances are untouched.
func (s *Store) EnsureAccount(userID string, startingBalance int) error {
	_, err := s.db.Exec(`
		INSERT INTO credits (user_id, balance) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, startingBalance)
	if err != nil {
		return fmt.Errorf("ensure credit account: %w", err)
	}
	return nil
}

// Balance returns the user's current credit balance. A user without an
// account has a balance of zero.
func (s *Store) Balance(userID string) (int, error) {
	var balance int
	err := s.db.QueryRow(
		"SELECT balance FROM credits WHERE user_id = ?", userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// GrantCredits adds credits to the user's account, creating it if needed.
func (s *Store) GrantCredits(userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive: %w", fault.ErrInvalidInput)
	}
	_, err := s.db.Exec(`
		INSERT INTO credits (user_id, balance) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET balance = balance + excluded.balance`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("grant credits: %w", err)
	}
	return nil
}

// ConsumeCredits deducts cost from the user's balance as a single
// conditional decrement. Two concurrent consumers cannot both pass an
// affordability check and overdraw: the WHERE clause is the check.
func (s *Store) ConsumeCredits(userID string, cost int) error {
	if cost < 0 {
		return fmt.Errorf("negative cost: %w", fault.ErrInvalidInput)
	}
	res, err := s.db.Exec(`
		UPDATE credits SET balance = balance - ?
		WHERE user_id = ? AND balance >= ?`,
		cost, userID, cost)
	if err != nil {
		return fmt.Errorf("consume credits: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cost %d: %w", cost, fault.ErrPaymentRequired)
	}
	return nil
}
