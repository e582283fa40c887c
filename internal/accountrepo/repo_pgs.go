// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/pagbem/withdraw-api/internal/domain"
	"github.com/pagbem/withdraw-api/pkg/dbpkg"
	"github.com/pagbem/withdraw-api/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    accounts (id, name, balance)
VALUES
    ($1, $2, $3)
RETURNING id, name, balance, created_at
`

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, id, name string, balance decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, id, name, balance)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT
	id, name, balance, created_at
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getForUpdateQuery = `
SELECT
	id, name, balance, created_at
FROM accounts
WHERE id = $1
FOR UPDATE
`

// GetForUpdate returns the account with the given id under an exclusive row
// lock. It must be called inside the transaction the given db handle belongs
// to; the lock is held until that transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getForUpdateQuery, id)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const debitQuery = `
UPDATE accounts
SET balance = balance - $1
WHERE id = $2 AND balance >= $1
RETURNING id, name, balance, created_at
`

// Debit decrements the account balance by amount and returns the changed
// account. The caller must have already confirmed sufficient balance under
// the account row lock in the same transaction; the WHERE guard and the
// balance check constraint are a second line of defense, never a substitute.
func (r *RepoPGS) Debit(ctx context.Context, id string, amount decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, debitQuery, amount, id)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrInsufficientBalance
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_check" {
				return a, domain.ErrInsufficientBalance
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}
