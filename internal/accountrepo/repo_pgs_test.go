package accountrepo

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"

	"github.com/pagbem/withdraw-api/internal/domain"
	"github.com/pagbem/withdraw-api/pkg/configpkg"
	"github.com/pagbem/withdraw-api/pkg/dbpkg"
	"github.com/pagbem/withdraw-api/pkg/randompkg"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testDB     *sql.DB
	testRepo   *RepoPGS
	testConfig configpkg.Config
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}
	testConfig = config

	testDB, err = sql.Open(config.DBDriver, config.DBSource)
	if err != nil {
		log.Fatal("cannot connect to db:", err)
	}

	testRepo = NewRepoPGS(testDB)

	os.Exit(m.Run())
}

func createRandomAccount(t *testing.T, balance decimal.Decimal) domain.Account {
	t.Helper()

	id := uuid.NewString()
	name := randompkg.Name()

	account, err := testRepo.Create(context.Background(), id, name, balance)
	require.NoError(t, err)
	require.NotEmpty(t, account)

	require.Equal(t, id, account.ID)
	require.Equal(t, name, account.Name)
	require.True(t, balance.Equal(account.Balance))
	require.NotZero(t, account.CreatedAt)

	return account
}

func TestCreate(t *testing.T) {
	createRandomAccount(t, randompkg.MoneyAmountBetween(1_000, 10_000))
}

func TestGet(t *testing.T) {
	testAccount := createRandomAccount(t, randompkg.MoneyAmountBetween(1_000, 10_000))

	account, err := testRepo.Get(context.Background(), testAccount.ID)
	require.NoError(t, err)

	require.Equal(t, testAccount.ID, account.ID)
	require.Equal(t, testAccount.Name, account.Name)
	require.True(t, testAccount.Balance.Equal(account.Balance))
}

func TestGetNotFound(t *testing.T) {
	_, err := testRepo.Get(context.Background(), uuid.NewString())
	require.EqualError(t, err, domain.ErrAccountNotFound.Error())
}

func TestGetForUpdate(t *testing.T) {
	testAccount := createRandomAccount(t, randompkg.MoneyAmountBetween(1_000, 10_000))

	tx := dbpkg.SetupTX(t, testConfig.DBDriver, testConfig.DBSource)

	account, err := NewRepoPGS(tx).GetForUpdate(context.Background(), testAccount.ID)
	require.NoError(t, err)
	require.Equal(t, testAccount.ID, account.ID)
}

func TestDebit(t *testing.T) {
	balance := decimal.RequireFromString("100")
	amount := decimal.RequireFromString("40")

	testAccount := createRandomAccount(t, balance)

	account, err := testRepo.Debit(context.Background(), testAccount.ID, amount)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("60")))
}

func TestDebitInsufficientBalance(t *testing.T) {
	balance := decimal.RequireFromString("10")
	amount := decimal.RequireFromString("50")

	testAccount := createRandomAccount(t, balance)

	_, err := testRepo.Debit(context.Background(), testAccount.ID, amount)
	require.EqualError(t, err, domain.ErrInsufficientBalance.Error())

	// The failed debit must leave the balance untouched.
	account, err := testRepo.Get(context.Background(), testAccount.ID)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(balance))
}
