package withdrawalrepo

import (
	"context"
	"database/sql"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pagbem/withdraw-api/internal/accountrepo"
	"github.com/pagbem/withdraw-api/internal/domain"
	"github.com/pagbem/withdraw-api/internal/payoutrepo"
	"github.com/pagbem/withdraw-api/pkg/configpkg"
	"github.com/pagbem/withdraw-api/pkg/randompkg"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var decimalComparer = cmp.Comparer(func(x, y decimal.Decimal) bool {
	return x.Equal(y)
})

var (
	testDB          *sql.DB
	testRepo        *RepoPGS
	testAccountRepo *accountrepo.RepoPGS
	testPayoutRepo  *payoutrepo.RepoPGS
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	testDB, err = sql.Open(config.DBDriver, config.DBSource)
	if err != nil {
		log.Fatal("cannot connect to db:", err)
	}

	testRepo = NewRepoPGS(testDB)
	testAccountRepo = accountrepo.NewRepoPGS(testDB)
	testPayoutRepo = payoutrepo.NewRepoPGS(testDB)

	os.Exit(m.Run())
}

func createTestAccount(t *testing.T, balance string) domain.Account {
	t.Helper()

	account, err := testAccountRepo.Create(context.Background(),
		uuid.NewString(), randompkg.Name(), decimal.RequireFromString(balance))
	require.NoError(t, err)

	return account
}

func withdrawArg(accountID, amount string, scheduledFor *time.Time) domain.CreateWithdrawalParams {
	return domain.CreateWithdrawalParams{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Method:       domain.MethodPix,
		Amount:       decimal.RequireFromString(amount),
		ScheduledFor: scheduledFor,
		Pix:          &domain.PixKey{Type: "email", Key: randompkg.Email()},
	}
}

func dueTime() *time.Time {
	t := time.Now().In(domain.ScheduleLocation).Add(-time.Hour)
	return &t
}

func futureTime() *time.Time {
	t := time.Now().In(domain.ScheduleLocation).Add(time.Hour)
	return &t
}

// drainDue runs ProcessDueTx until no claimable work remains. The test
// database is shared, so a drain may also finish rows left over from other
// tests; callers assert on their own records and balances only.
func drainDue(t *testing.T) {
	t.Helper()

	cutoff := time.Now().In(domain.ScheduleLocation)

	var skip []string
	for {
		w, err := testRepo.ProcessDueTx(context.Background(), cutoff, skip)
		if err == domain.ErrWithdrawalNotFound {
			return
		}
		require.NoError(t, err)
		require.True(t, w.Done)
	}
}

func TestWithdrawTxImmediate(t *testing.T) {
	account := createTestAccount(t, "100")
	arg := withdrawArg(account.ID, "40", nil)

	w, err := testRepo.WithdrawTx(context.Background(), arg)
	require.NoError(t, err)

	require.Equal(t, arg.ID, w.ID)
	require.True(t, w.Done)
	require.False(t, w.Error)
	require.Nil(t, w.ErrorReason)
	require.False(t, w.Scheduled)
	require.Nil(t, w.ScheduledFor)

	got, err := testAccountRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("60")))

	// The committed row must match what WithdrawTx returned.
	stored, err := testRepo.Get(context.Background(), w.ID)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(w, stored, decimalComparer))

	payout, err := testPayoutRepo.GetByWithdrawalID(context.Background(), w.ID)
	require.NoError(t, err)
	require.Equal(t, arg.Pix.Type, payout.Type)
	require.Equal(t, arg.Pix.Key, payout.Key)
}

func TestWithdrawTxInsufficientBalance(t *testing.T) {
	account := createTestAccount(t, "10")
	arg := withdrawArg(account.ID, "50", nil)

	_, err := testRepo.WithdrawTx(context.Background(), arg)
	require.EqualError(t, err, domain.ErrInsufficientBalance.Error())

	// Nothing may survive the rolled back transaction.
	_, err = testRepo.Get(context.Background(), arg.ID)
	require.EqualError(t, err, domain.ErrWithdrawalNotFound.Error())

	got, err := testAccountRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("10")))
}

func TestWithdrawTxAccountNotFound(t *testing.T) {
	arg := withdrawArg(uuid.NewString(), "40", nil)

	_, err := testRepo.WithdrawTx(context.Background(), arg)
	require.EqualError(t, err, domain.ErrAccountNotFound.Error())
}

func TestWithdrawTxScheduled(t *testing.T) {
	account := createTestAccount(t, "50")
	arg := withdrawArg(account.ID, "50", futureTime())

	w, err := testRepo.WithdrawTx(context.Background(), arg)
	require.NoError(t, err)

	require.True(t, w.Scheduled)
	require.False(t, w.Done)
	require.False(t, w.Error)
	require.NotNil(t, w.ScheduledFor)
	require.Equal(t,
		arg.ScheduledFor.Format(domain.ScheduleEchoLayout),
		w.ScheduledFor.Format(domain.ScheduleEchoLayout))

	// Scheduling must not reserve funds.
	got, err := testAccountRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("50")))
}

func TestProcessDueTxClaimsDueWithdrawal(t *testing.T) {
	account := createTestAccount(t, "100")
	arg := withdrawArg(account.ID, "40", dueTime())

	_, err := testRepo.WithdrawTx(context.Background(), arg)
	require.NoError(t, err)

	drainDue(t)

	w, err := testRepo.Get(context.Background(), arg.ID)
	require.NoError(t, err)
	require.True(t, w.Done)
	require.False(t, w.Error)

	got, err := testAccountRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("60")))
}

func TestProcessDueTxIgnoresFutureWithdrawal(t *testing.T) {
	account := createTestAccount(t, "100")
	arg := withdrawArg(account.ID, "40", futureTime())

	_, err := testRepo.WithdrawTx(context.Background(), arg)
	require.NoError(t, err)

	drainDue(t)

	w, err := testRepo.Get(context.Background(), arg.ID)
	require.NoError(t, err)
	require.False(t, w.Done)

	got, err := testAccountRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("100")))
}

func TestProcessDueTxInsufficientAtProcessing(t *testing.T) {
	account := createTestAccount(t, "50")

	// Scheduling passes the solvency check at creation time.
	scheduled := withdrawArg(account.ID, "50", dueTime())
	_, err := testRepo.WithdrawTx(context.Background(), scheduled)
	require.NoError(t, err)

	// An immediate withdrawal then drains the account.
	_, err = testRepo.WithdrawTx(context.Background(), withdrawArg(account.ID, "50", nil))
	require.NoError(t, err)

	drainDue(t)

	w, err := testRepo.Get(context.Background(), scheduled.ID)
	require.NoError(t, err)
	require.True(t, w.Done)
	require.True(t, w.Error)
	require.NotNil(t, w.ErrorReason)
	require.Equal(t, domain.ReasonInsufficientAtProcess, *w.ErrorReason)

	// The failed execution must not touch the balance.
	got, err := testAccountRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.Zero))
}

func TestExecuteLockedIdempotent(t *testing.T) {
	account := createTestAccount(t, "100")
	arg := withdrawArg(account.ID, "40", nil)

	w, err := testRepo.WithdrawTx(context.Background(), arg)
	require.NoError(t, err)
	require.True(t, w.Done)

	// Running the execution path again over a terminal record is a no-op.
	tx, err := testDB.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	again, err := executeLocked(context.Background(), tx, arg.ID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.True(t, again.Done)
	require.False(t, again.Error)
	require.Equal(t, w.UpdatedAt, again.UpdatedAt)

	got, err := testAccountRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("60")))
}

func TestConcurrentDispatchers(t *testing.T) {
	account := createTestAccount(t, "100")

	first := withdrawArg(account.ID, "30", dueTime())
	second := withdrawArg(account.ID, "30", dueTime())

	_, err := testRepo.WithdrawTx(context.Background(), first)
	require.NoError(t, err)
	_, err = testRepo.WithdrawTx(context.Background(), second)
	require.NoError(t, err)

	const workers = 4

	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			cutoff := time.Now().In(domain.ScheduleLocation)
			for {
				_, err := testRepo.ProcessDueTx(context.Background(), cutoff, nil)
				if err == domain.ErrWithdrawalNotFound {
					return
				}
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	for _, id := range []string{first.ID, second.ID} {
		w, err := testRepo.Get(context.Background(), id)
		require.NoError(t, err)
		require.True(t, w.Done)
		require.False(t, w.Error)
	}

	// Each withdrawal debited exactly once regardless of racing workers.
	got, err := testAccountRepo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("40")))
}
