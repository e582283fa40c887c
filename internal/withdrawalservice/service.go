// Package withdrawalservice manages business logic layer of withdrawals.
package withdrawalservice

import (
	"context"
	"time"

	"github.com/pagbem/withdraw-api/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by withdrawal service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package withdrawalservice
type Repo interface {
	WithdrawTx(ctx context.Context, arg domain.CreateWithdrawalParams) (domain.Withdrawal, error)
	ProcessDueTx(ctx context.Context, cutoff time.Time, skip []string) (domain.Withdrawal, error)
}

// Notifier dispatches the post-commit withdrawal notification. Implementations
// must be best-effort: failures are logged, never returned.
type Notifier interface {
	WithdrawalProcessed(ctx context.Context, withdrawalID string)
}

// Service facilitates withdrawal service layer logic.
type Service struct {
	repo     Repo
	notifier Notifier
}

// New returns withdrawal service struct to manage withdrawal business logic.
func New(repo Repo, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
	}
}

// WithdrawParams is the input of a withdrawal request, validated for shape by
// the delivery layer.
type WithdrawParams struct {
	Method   string
	Amount   string
	Pix      *domain.PixKey
	Schedule string
}

func parseRequest(arg WithdrawParams) (decimal.Decimal, *time.Time, error) {
	amount, err := decimal.NewFromString(arg.Amount)
	if err != nil {
		return decimal.Decimal{}, nil, domain.ErrInvalidAmount
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, nil, domain.ErrNonPositiveAmount
	}

	if arg.Method == domain.MethodPix && arg.Pix == nil {
		return decimal.Decimal{}, nil, domain.ErrMissingPixKey
	}

	var scheduledFor *time.Time

	if arg.Schedule != "" {
		t, err := time.ParseInLocation(domain.ScheduleLayout, arg.Schedule, domain.ScheduleLocation)
		if err != nil {
			return decimal.Decimal{}, nil, domain.ErrInvalidSchedule
		}

		if t.Before(time.Now()) {
			return decimal.Decimal{}, nil, domain.ErrScheduleInPast
		}

		scheduledFor = &t
	}

	return amount, scheduledFor, nil
}

// Withdraw validates the request and runs the withdrawal creation protocol.
//
// Non-scheduled withdrawals are debited and finalized inside the creation
// transaction; the notification is dispatched on a detached context after
// commit so that its failure can never surface as a failure of Withdraw.
func (s *Service) Withdraw(ctx context.Context, accountID string, arg WithdrawParams) (domain.Withdrawal, error) {
	l := zerolog.Ctx(ctx)

	amount, scheduledFor, err := parseRequest(arg)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Withdrawal{}, err
	}

	withdrawal, err := s.repo.WithdrawTx(ctx, domain.CreateWithdrawalParams{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Method:       arg.Method,
		Amount:       amount,
		ScheduledFor: scheduledFor,
		Pix:          arg.Pix,
	})
	if err != nil {
		return withdrawal, err
	}

	if withdrawal.Done && !withdrawal.Error {
		s.dispatchNotification(ctx, withdrawal.ID)
	}

	return withdrawal, nil
}

// dispatchNotification hands the withdrawal id to the notifier on a fresh
// goroutine detached from the request context, keeping only its logger.
func (s *Service) dispatchNotification(ctx context.Context, withdrawalID string) {
	l := zerolog.Ctx(ctx)
	detached := l.WithContext(context.Background())

	go s.notifier.WithdrawalProcessed(detached, withdrawalID)
}

// ProcessScheduled runs a single dispatch pass: it claims and executes due
// scheduled withdrawals one at a time until none remain, returning how many
// reached a terminal state (error-terminal withdrawals count as processed).
//
// A storage failure on one record is logged and the record is skipped for
// the rest of the pass; it becomes claimable again on the next pass.
func (s *Service) ProcessScheduled(ctx context.Context) (int, error) {
	l := zerolog.Ctx(ctx)

	processed := 0

	var skip []string

	for {
		// Schedule times are stored as naive timestamps in a fixed offset,
		// so the comparison clock is rendered into that same offset.
		cutoff := time.Now().In(domain.ScheduleLocation)

		withdrawal, err := s.repo.ProcessDueTx(ctx, cutoff, skip)
		if err == domain.ErrWithdrawalNotFound {
			break
		}

		if err != nil {
			if withdrawal.ID == "" {
				return processed, err
			}

			l.Error().Err(err).Str("withdrawal_id", withdrawal.ID).Msg("failed to process scheduled withdrawal")
			skip = append(skip, withdrawal.ID)

			continue
		}

		processed++

		if withdrawal.Error {
			reason := ""
			if withdrawal.ErrorReason != nil {
				reason = *withdrawal.ErrorReason
			}

			l.Warn().
				Str("withdrawal_id", withdrawal.ID).
				Str("account_id", withdrawal.AccountID).
				Str("reason", reason).
				Msg("scheduled withdrawal finished with error")

			continue
		}

		l.Info().
			Str("withdrawal_id", withdrawal.ID).
			Str("account_id", withdrawal.AccountID).
			Str("amount", withdrawal.Amount.String()).
			Msg("scheduled withdrawal processed")

		s.dispatchNotification(ctx, withdrawal.ID)
	}

	if processed > 0 {
		l.Info().Int("processed", processed).Msg("scheduled withdrawals pass finished")
	}

	return processed, nil
}
