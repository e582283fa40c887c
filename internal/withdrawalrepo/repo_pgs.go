// Package withdrawalrepo manages repository layer of withdrawals.
//
// Besides plain row access it owns the two transactional protocols of the
// engine: WithdrawTx creates a withdrawal (and debits immediately when not
// scheduled) and ProcessDueTx claims and executes a single due scheduled
// withdrawal. Both share the same execution path, which is the only code
// that may move a withdrawal to its terminal state.
package withdrawalrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/pagbem/withdraw-api/internal/accountrepo"
	"github.com/pagbem/withdraw-api/internal/domain"
	"github.com/pagbem/withdraw-api/internal/payoutrepo"
	"github.com/pagbem/withdraw-api/pkg/dbpkg"
	"github.com/pagbem/withdraw-api/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates withdrawal repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns withdrawal RepoPGS bound to an existing transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns withdrawal RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const withdrawalColumns = `
	id, account_id, method, amount, scheduled, scheduled_for, done, error, error_reason, created_at, updated_at
`

func scanWithdrawal(row *sql.Row) (domain.Withdrawal, error) {
	var (
		w            domain.Withdrawal
		scheduledFor sql.NullTime
		errorReason  sql.NullString
	)

	err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.Method,
		&w.Amount,
		&w.Scheduled,
		&scheduledFor,
		&w.Done,
		&w.Error,
		&errorReason,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return w, err
	}

	if scheduledFor.Valid {
		t := scheduledFor.Time
		w.ScheduledFor = &t
	}

	if errorReason.Valid {
		r := errorReason.String
		w.ErrorReason = &r
	}

	return w, nil
}

const createQuery = `
INSERT INTO
    withdrawals (id, account_id, method, amount, scheduled, scheduled_for)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING` + withdrawalColumns

// Create creates the withdrawal in pending state and then returns it.
// The id must be generated by the caller.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateWithdrawalParams) (domain.Withdrawal, error) {
	l := zerolog.Ctx(ctx)

	var scheduledFor sql.NullTime
	if arg.ScheduledFor != nil {
		scheduledFor = sql.NullTime{Time: *arg.ScheduledFor, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.ID,
		arg.AccountID,
		arg.Method,
		arg.Amount,
		arg.ScheduledFor != nil,
		scheduledFor,
	)

	w, err := scanWithdrawal(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "withdrawals_account_id_fkey":
				return w, domain.ErrAccountNotFound
			case "withdrawals_amount_check":
				return w, domain.ErrNonPositiveAmount
			}
		}

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

const getQuery = `
SELECT` + withdrawalColumns + `
FROM withdrawals
WHERE id = $1
`

// Get returns the withdrawal with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Withdrawal, error) {
	l := zerolog.Ctx(ctx)

	w, err := scanWithdrawal(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return w, domain.ErrWithdrawalNotFound
		}

		l.Error().Err(err).Send()

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

const getForUpdateQuery = `
SELECT` + withdrawalColumns + `
FROM withdrawals
WHERE id = $1
FOR UPDATE
`

// GetForUpdate returns the withdrawal with the given id under an exclusive
// row lock held until the surrounding transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id string) (domain.Withdrawal, error) {
	l := zerolog.Ctx(ctx)

	w, err := scanWithdrawal(r.db.QueryRowContext(ctx, getForUpdateQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return w, domain.ErrWithdrawalNotFound
		}

		l.Error().Err(err).Send()

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

const markDoneQuery = `
UPDATE withdrawals
SET done = TRUE, error = $2, error_reason = $3, updated_at = now()
WHERE id = $1 AND NOT done
RETURNING` + withdrawalColumns

// markDone performs the single terminal transition of a withdrawal. The
// NOT done guard keeps the transition one-shot even if a code path were to
// reach it twice.
func (r *RepoPGS) markDone(ctx context.Context, id string, isError bool, reason string) (domain.Withdrawal, error) {
	l := zerolog.Ctx(ctx)

	var errorReason sql.NullString
	if reason != "" {
		errorReason = sql.NullString{String: reason, Valid: true}
	}

	w, err := scanWithdrawal(r.db.QueryRowContext(ctx, markDoneQuery, id, isError, errorReason))
	if err != nil {
		if err == sql.ErrNoRows {
			return w, domain.ErrWithdrawalNotFound
		}

		l.Error().Err(err).Send()

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

const claimDueQuery = `
SELECT` + withdrawalColumns + `
FROM withdrawals
WHERE scheduled AND NOT done AND scheduled_for <= $1 AND id <> ALL($2::uuid[])
ORDER BY scheduled_for ASC, id ASC
LIMIT 1
FOR UPDATE SKIP LOCKED
`

// claimDue locks a single due, unprocessed scheduled withdrawal. Rows locked
// by a concurrent dispatcher are skipped rather than waited on; the fixed
// (scheduled_for, id) ordering keeps all dispatchers acquiring locks in the
// same global order. Returns ErrWithdrawalNotFound when no claimable row
// remains.
func (r *RepoPGS) claimDue(ctx context.Context, cutoff time.Time, skip []string) (domain.Withdrawal, error) {
	l := zerolog.Ctx(ctx)

	if skip == nil {
		skip = []string{}
	}

	w, err := scanWithdrawal(r.db.QueryRowContext(ctx, claimDueQuery, cutoff, pq.Array(skip)))
	if err != nil {
		if err == sql.ErrNoRows {
			return w, domain.ErrWithdrawalNotFound
		}

		l.Error().Err(err).Send()

		return w, errorspkg.ErrInternal
	}

	return w, nil
}

// executeLocked drives a withdrawal to its terminal state inside the given
// transaction. It re-reads the record under lock first: a record already
// done is a no-op, which makes a second claimant's work harmless.
func executeLocked(ctx context.Context, tx *sql.Tx, id string) (domain.Withdrawal, error) {
	withdrawals := NewTxRepoPGS(tx)
	accounts := accountrepo.NewRepoPGS(tx)

	w, err := withdrawals.GetForUpdate(ctx, id)
	if err != nil {
		return w, err
	}

	if w.Done {
		return w, nil
	}

	account, err := accounts.GetForUpdate(ctx, w.AccountID)
	if err == domain.ErrAccountNotFound {
		return withdrawals.markDone(ctx, w.ID, true, domain.ReasonAccountNotFound)
	}

	if err != nil {
		return w, err
	}

	if account.Balance.LessThan(w.Amount) {
		return withdrawals.markDone(ctx, w.ID, true, domain.ReasonInsufficientAtProcess)
	}

	if _, err := accounts.Debit(ctx, w.AccountID, w.Amount); err != nil {
		return w, err
	}

	return withdrawals.markDone(ctx, w.ID, false, "")
}

// WithdrawTx creates a withdrawal within a single database transaction.
//
// It locks the account row, validates the balance, persists the withdrawal
// (and its payout destination), and, when the withdrawal is not scheduled,
// immediately runs the execution path before committing. Scheduled
// withdrawals do not reserve funds; solvency is re-checked at execution
// time.
func (r *RepoPGS) WithdrawTx(ctx context.Context, arg domain.CreateWithdrawalParams) (domain.Withdrawal, error) {
	l := zerolog.Ctx(ctx)

	var result domain.Withdrawal

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	withdrawals := NewTxRepoPGS(tx)
	accounts := accountrepo.NewRepoPGS(tx)
	payouts := payoutrepo.NewRepoPGS(tx)

	account, err := accounts.GetForUpdate(ctx, arg.AccountID)
	if err != nil {
		return result, err
	}

	if account.Balance.LessThan(arg.Amount) {
		return result, domain.ErrInsufficientBalance
	}

	result, err = withdrawals.Create(ctx, arg)
	if err != nil {
		return result, err
	}

	if arg.Pix != nil {
		if _, err := payouts.Create(ctx, result.ID, arg.Pix.Type, arg.Pix.Key); err != nil {
			return result, err
		}
	}

	if !result.Scheduled {
		result, err = executeLocked(ctx, tx, result.ID)
		if err != nil {
			return result, err
		}
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	return result, nil
}

// ProcessDueTx claims a single due scheduled withdrawal and drives it to a
// terminal state, all within one short transaction. The returned withdrawal
// reflects the committed terminal state. ErrWithdrawalNotFound means no due
// work remained; ids listed in skip are not considered.
func (r *RepoPGS) ProcessDueTx(ctx context.Context, cutoff time.Time, skip []string) (domain.Withdrawal, error) {
	l := zerolog.Ctx(ctx)

	var result domain.Withdrawal

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	claimed, err := NewTxRepoPGS(tx).claimDue(ctx, cutoff, skip)
	if err != nil {
		return claimed, err
	}

	result, err = executeLocked(ctx, tx, claimed.ID)
	if err != nil {
		// Keep the claimed id so the caller can skip it for the rest of the pass.
		result.ID = claimed.ID
		return result, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	return result, nil
}
