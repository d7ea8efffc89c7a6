package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dukeofgo/librarius/internal/domain"
)

var lendingTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "library_lending_transitions_total", Help: "Borrow/return attempts by outcome"},
	[]string{"op", "outcome"},
)

func init() { prometheus.MustRegister(lendingTransitions) }

type LendingOptions struct {
	EnforceEligibility bool
	Now                func() time.Time
	Log                *zap.Logger
}

// LendingService 借还状态机
type LendingService struct {
	store              domain.Store
	enforceEligibility bool
	now                func() time.Time
	log                *zap.Logger
}

func NewLendingService(store domain.Store, o LendingOptions) *LendingService {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return &LendingService{store: store, enforceEligibility: o.EnforceEligibility, now: o.Now, log: o.Log}
}

func (s *LendingService) Borrow(ctx context.Context, bookID uint, email string) (*domain.Book, error) {
	return s.transition(ctx, domain.OpBorrow, bookID, email)
}

func (s *LendingService) Return(ctx context.Context, bookID uint, email string) (*domain.Book, error) {
	return s.transition(ctx, domain.OpReturn, bookID, email)
}

func (s *LendingService) decide(op domain.LoanOp, b *domain.Book, u *domain.User) (domain.LoanTransition, error) {
	if op == domain.OpBorrow {
		return domain.DecideBorrow(b, u, s.enforceEligibility, s.now())
	}
	return domain.DecideReturn(b, u, s.now())
}

// transition 检查顺序：用户 → 书 → 状态。写入是条件 UPDATE，
// 没命中说明被并发请求抢先，重读后重新判定，给出准确的冲突原因。
func (s *LendingService) transition(ctx context.Context, op domain.LoanOp, bookID uint, email string) (*domain.Book, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out *domain.Book
	err := s.store.Tx(ctx, func(tx domain.Store) error {
		u, err := tx.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		for attempt := 0; attempt < 2; attempt++ {
			b, err := tx.Books().FindByID(ctx, bookID)
			if err != nil {
				return err
			}
			t, err := s.decide(op, b, u)
			if err != nil {
				return err
			}
			ok, err := tx.Books().Transition(ctx, b.ID, t)
			if err != nil {
				return err
			}
			if ok {
				t.Apply(b)
				out = b
				return nil
			}
			s.log.Debug("lending lost race, re-reading", zap.String("op", string(op)), zap.Uint("book_id", bookID))
		}
		return domain.ErrConcurrentUpdate
	})

	lendingTransitions.WithLabelValues(string(op), outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	s.log.Info("book "+string(op)+"ed",
		zap.Uint("book_id", out.ID),
		zap.String("isbn", out.ISBN),
		zap.String("email", email),
	)
	return out, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	}
	return "error"
}
