// Package payoutrepo manages repository layer of payout destinations.
package payoutrepo

import (
	"context"
	"database/sql"

	"github.com/pagbem/withdraw-api/internal/domain"
	"github.com/pagbem/withdraw-api/pkg/dbpkg"
	"github.com/pagbem/withdraw-api/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates payout destination repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns payout destination RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    payout_destinations (withdrawal_id, type, key)
VALUES
    ($1, $2, $3)
RETURNING withdrawal_id, type, key, created_at
`

// Create creates the payout destination for a withdrawal and then returns it.
func (r *RepoPGS) Create(ctx context.Context, withdrawalID, destType, key string) (domain.PayoutDestination, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, withdrawalID, destType, key)

	var d domain.PayoutDestination

	err := row.Scan(
		&d.WithdrawalID,
		&d.Type,
		&d.Key,
		&d.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "payout_destinations_withdrawal_id_fkey" {
				return d, domain.ErrWithdrawalNotFound
			}
		}

		return d, errorspkg.ErrInternal
	}

	return d, nil
}

const getByWithdrawalIDQuery = `
SELECT
	withdrawal_id, type, key, created_at
FROM payout_destinations
WHERE withdrawal_id = $1
`

// GetByWithdrawalID returns the payout destination of the given withdrawal.
func (r *RepoPGS) GetByWithdrawalID(ctx context.Context, withdrawalID string) (domain.PayoutDestination, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getByWithdrawalIDQuery, withdrawalID)

	var d domain.PayoutDestination

	err := row.Scan(
		&d.WithdrawalID,
		&d.Type,
		&d.Key,
		&d.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return d, domain.ErrWithdrawalNotFound
		}

		l.Error().Err(err).Send()

		return d, errorspkg.ErrInternal
	}

	return d, nil
}
