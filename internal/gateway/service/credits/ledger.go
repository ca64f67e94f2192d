// Package credits meters refinement work per user.
package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"focalai/internal/gateway/entity"
)

const (
	DefaultInitial      = 10
	DefaultIdeaCost     = 2
	DefaultFeedbackCost = 1
)

const (
	ReasonIdea     = "idea"
	ReasonFeedback = "feedback"
	ReasonRefund   = "refund"
)

var (
	ErrInsufficient  = errors.New("insufficient credits")
	ErrInvalidAmount = errors.New("credit amount must be positive")
)

// Transaction records one balance change. Delta is negative for deductions.
type Transaction struct {
	ID        string        `json:"id"`
	UserID    entity.UserID `json:"user_id"`
	Delta     int           `json:"delta"`
	Reason    string        `json:"reason"`
	Balance   int           `json:"balance"`
	CreatedAt time.Time     `json:"created_at"`
}

// Ledger tracks balances. Users that were never seen hold the initial grant.
type Ledger interface {
	Balance(ctx context.Context, user entity.UserID) (int, error)
	Deduct(ctx context.Context, user entity.UserID, amount int, reason string) (int, error)
	Refund(ctx context.Context, user entity.UserID, amount int, reason string) (int, error)
	Transactions(ctx context.Context, user entity.UserID, limit int) ([]Transaction, error)
}

var (
	_ Ledger = (*MemoryLedger)(nil)
	_ Ledger = (*PostgresLedger)(nil)
)

func checkAmount(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
