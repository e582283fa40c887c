// Package notifier dispatches best-effort withdrawal notifications.
//
// The notifier runs strictly after the financial transaction has committed
// and re-reads all state fresh, so it always reports post-commit values.
// Delivery failures are logged as warnings and never surfaced to callers:
// a lost email must not be able to affect a completed debit.
package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/pagbem/withdraw-api/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WithdrawalGetter provides read access to withdrawals.
//
//go:generate mockgen -source notifier.go -destination notifier_mock.go -package notifier
type WithdrawalGetter interface {
	Get(ctx context.Context, id string) (domain.Withdrawal, error)
}

// PayoutGetter provides read access to payout destinations.
type PayoutGetter interface {
	GetByWithdrawalID(ctx context.Context, withdrawalID string) (domain.PayoutDestination, error)
}

// Email sends a notification email for each successfully processed withdrawal.
type Email struct {
	withdrawals WithdrawalGetter
	payouts     PayoutGetter
	from        string

	send func(from, to string, msg []byte) error
}

// NewEmail returns an Email notifier delivering through the given SMTP host.
func NewEmail(withdrawals WithdrawalGetter, payouts PayoutGetter, host string, port int, from string) *Email {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	return &Email{
		withdrawals: withdrawals,
		payouts:     payouts,
		from:        from,
		send: func(from, to string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, []string{to}, msg)
		},
	}
}

// WithdrawalProcessed re-reads the withdrawal and its payout destination and
// attempts a single delivery. It never returns an error: every failure mode
// is a logged warning.
func (e *Email) WithdrawalProcessed(ctx context.Context, withdrawalID string) {
	l := zerolog.Ctx(ctx)

	withdrawal, err := e.withdrawals.Get(ctx, withdrawalID)
	if err != nil {
		l.Warn().Err(err).Str("withdrawal_id", withdrawalID).Msg("notification skipped: withdrawal not readable")
		return
	}

	payout, err := e.payouts.GetByWithdrawalID(ctx, withdrawalID)
	if err != nil {
		l.Warn().Err(err).Str("withdrawal_id", withdrawalID).Msg("notification skipped: payout destination missing")
		return
	}

	msg := buildMessage(e.from, payout.Key, withdrawal.Amount, withdrawal.UpdatedAt, payout.Type)

	if err := e.send(e.from, payout.Key, msg); err != nil {
		l.Warn().Err(err).Str("withdrawal_id", withdrawalID).Msg("notification delivery failed (non-critical)")
		return
	}

	l.Info().Str("withdrawal_id", withdrawalID).Str("to", payout.Key).Msg("withdrawal notification sent")
}

func buildMessage(from, to string, amount decimal.Decimal, processedAt time.Time, keyType string) []byte {
	var b strings.Builder

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: PIX withdrawal completed\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(buildBody(amount, processedAt, keyType, to))

	return []byte(b.String())
}

func buildBody(amount decimal.Decimal, processedAt time.Time, keyType, key string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body>
    <h1>PIX withdrawal completed</h1>
    <p>Your PIX withdrawal has been processed.</p>
    <ul>
        <li><strong>Amount:</strong> %s</li>
        <li><strong>Date:</strong> %s</li>
        <li><strong>PIX key type:</strong> %s</li>
        <li><strong>PIX key:</strong> %s</li>
    </ul>
    <p>The amount has been debited from your digital account.</p>
</body>
</html>`,
		amount.StringFixed(2),
		processedAt.Format(domain.ScheduleEchoLayout),
		keyType,
		key,
	)
}
