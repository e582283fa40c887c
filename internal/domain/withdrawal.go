package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrWithdrawalNotFound indicates that the withdrawal is not found.
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	// ErrInvalidAmount indicates that the amount is not a valid decimal number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNonPositiveAmount indicates a zero or negative amount.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	// ErrMissingPixKey indicates that a PIX withdrawal has no payout destination.
	ErrMissingPixKey = errors.New("pix type and key are required for PIX withdrawals")
	// ErrInvalidSchedule indicates that the schedule time cannot be parsed.
	ErrInvalidSchedule = errors.New("schedule must be a valid date-time in format 2006-01-02 15:04")
	// ErrScheduleInPast indicates a schedule time that has already passed.
	ErrScheduleInPast = errors.New("schedule must not be in the past")
)

// Terminal failure reasons recorded on a withdrawal. They are business
// outcomes, not errors: the surrounding operation still succeeds.
const (
	ReasonAccountNotFound       = "account not found"
	ReasonInsufficientAtProcess = "insufficient funds at processing time"
)

// MethodPix is the only withdrawal method currently supported.
const MethodPix = "PIX"

// ScheduleLayout is the wire format for schedule times in requests.
const ScheduleLayout = "2006-01-02 15:04"

// ScheduleEchoLayout is the wire format for schedule times in responses.
const ScheduleEchoLayout = "2006-01-02 15:04:05"

// ScheduleLocation is the fixed offset in which schedule times are stored
// and compared. It is deliberately a fixed offset, not a DST-aware zone.
var ScheduleLocation = time.FixedZone("-03:00", -3*60*60)

// Withdrawal holds the lifecycle state of a single withdrawal request.
//
// A withdrawal is created pending (done=false, error=false) and transitions
// exactly once to a terminal state: done=true with error=false on success,
// or done=true with error=true and a reason on permanent failure.
type Withdrawal struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Method       string          `json:"method"`
	Amount       decimal.Decimal `json:"amount"`
	Scheduled    bool            `json:"scheduled"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	Done         bool            `json:"done"`
	Error        bool            `json:"error"`
	ErrorReason  *string         `json:"error_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PayoutDestination is the PIX key funds are routed to. It is owned by its
// withdrawal, created once alongside it and never mutated.
type PayoutDestination struct {
	WithdrawalID string    `json:"withdrawal_id"`
	Type         string    `json:"type"`
	Key          string    `json:"key"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateWithdrawalParams holds the data needed to persist a new withdrawal.
// ID must be generated by the caller so it is known before commit.
type CreateWithdrawalParams struct {
	ID           string
	AccountID    string
	Method       string
	Amount       decimal.Decimal
	ScheduledFor *time.Time
	Pix          *PixKey
}

// PixKey is the payout destination provided with a PIX withdrawal request.
type PixKey struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}
