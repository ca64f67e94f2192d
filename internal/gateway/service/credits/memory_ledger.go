package credits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"focalai/internal/gateway/entity"
)

type MemoryLedger struct {
	mu       sync.Mutex
	initial  int
	balances map[entity.UserID]int
	history  map[entity.UserID][]Transaction
}

func NewMemoryLedger(initial int) *MemoryLedger {
	return &MemoryLedger{
		initial:  initial,
		balances: make(map[entity.UserID]int),
		history:  make(map[entity.UserID][]Transaction),
	}
}

func (l *MemoryLedger) Balance(_ context.Context, user entity.UserID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(user), nil
}

func (l *MemoryLedger) Deduct(_ context.Context, user entity.UserID, amount int, reason string) (int, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balanceLocked(user)
	if bal < amount {
		return bal, fmt.Errorf("%w: balance %d, need %d", ErrInsufficient, bal, amount)
	}
	return l.applyLocked(user, -amount, reason), nil
}

func (l *MemoryLedger) Refund(_ context.Context, user entity.UserID, amount int, reason string) (int, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balanceLocked(user)
	return l.applyLocked(user, amount, reason), nil
}

// Transactions returns the newest transactions first.
func (l *MemoryLedger) Transactions(_ context.Context, user entity.UserID, limit int) ([]Transaction, error) {
	limit = clampLimit(limit)
	l.mu.Lock()
	defer l.mu.Unlock()
	hist := l.history[entity.UserID(user.String())]
	out := make([]Transaction, 0, min(limit, len(hist)))
	for i := len(hist) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, hist[i])
	}
	return out, nil
}

func (l *MemoryLedger) balanceLocked(user entity.UserID) int {
	key := entity.UserID(user.String())
	bal, ok := l.balances[key]
	if !ok {
		bal = l.initial
		l.balances[key] = bal
	}
	return bal
}

func (l *MemoryLedger) applyLocked(user entity.UserID, delta int, reason string) int {
	key := entity.UserID(user.String())
	l.balances[key] += delta
	l.history[key] = append(l.history[key], Transaction{
		ID:        uuid.NewString(),
		UserID:    key,
		Delta:     delta,
		Reason:    reason,
		Balance:   l.balances[key],
		CreatedAt: time.Now().UTC(),
	})
	return l.balances[key]
}
