package payoutd_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"drippy/core/payout"
	"drippy/core/types"
	"drippy/services/payoutd"
	"drippy/services/payoutd/wallet"
	"drippy/storage"
)

type mockWallet struct {
	batches [][]wallet.Transfer
	fail    error
}

func (m *mockWallet) Submit(_ context.Context, batch []wallet.Transfer) ([]string, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.batches = append(m.batches, batch)
	hashes := make([]string, len(batch))
	for i := range batch {
		hashes[i] = "tx-" + batch[i].Amount
	}
	return hashes, nil
}

func recipient(b byte) types.AccountID {
	var id types.AccountID
	id[0] = 0x42
	id[19] = b
	return id
}

func newProcessor(t *testing.T, db storage.Database, w wallet.Wallet, policies ...payoutd.Policy) *payoutd.Processor {
	t.Helper()
	opts := []payoutd.ProcessorOption{
		payoutd.WithWallet(w),
		payoutd.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }),
	}
	if len(policies) > 0 {
		enforcer, err := payoutd.NewPolicyEnforcer(policies)
		require.NoError(t, err)
		opts = append(opts, payoutd.WithPolicies(enforcer))
	}
	proc, err := payoutd.NewProcessor(payoutd.NewReserveStore(db), opts...)
	require.NoError(t, err)
	return proc
}

func TestOverCapRejectsWholeBatch(t *testing.T) {
	mock := &mockWallet{}
	proc := newProcessor(t, storage.NewMemDB(), mock, payoutd.Policy{Asset: "XRP", DailyCap: 1_000})

	receipts, err := proc.Emit(context.Background(), []payout.Instruction{
		{Recipient: recipient(1), Asset: types.NativeAsset, Amount: 900},
	})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	require.Equal(t, "tx-900", receipts[0].TxHash)

	_, err = proc.Emit(context.Background(), []payout.Instruction{
		{Recipient: recipient(2), Asset: types.NativeAsset, Amount: 50},
		{Recipient: recipient(3), Asset: types.NativeAsset, Amount: 60},
	})
	require.ErrorIs(t, err, payoutd.ErrDailyCapExceeded)
	require.Len(t, mock.batches, 1, "over-cap batch must not reach the wallet")
}

func TestBoostDrawsFromReserve(t *testing.T) {
	db := storage.NewMemDB()
	mock := &mockWallet{}
	proc := newProcessor(t, db, mock, payoutd.Policy{Asset: "XRP", Reserve: 4_000_000})

	boosted := payout.Instruction{Recipient: recipient(1), Asset: types.NativeAsset, Amount: 6_000_000, LedgerFunded: 2_000_000, ReserveFunded: 4_000_000, Purpose: payout.PurposeClaim}
	_, err := proc.Emit(context.Background(), []payout.Instruction{boosted})
	require.NoError(t, err)
	balance, err := proc.Reserve("XRP")
	require.NoError(t, err)
	require.Zero(t, balance)

	_, err = proc.Emit(context.Background(), []payout.Instruction{boosted})
	require.ErrorIs(t, err, payoutd.ErrReserveExhausted)
	require.Len(t, mock.batches, 1)

	balance, err = proc.TopUpReserve("xrp", 4_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(4_000_000), balance)
	_, err = proc.Emit(context.Background(), []payout.Instruction{boosted})
	require.NoError(t, err)
}

func TestReserveSeedDoesNotOverwrite(t *testing.T) {
	db := storage.NewMemDB()
	proc := newProcessor(t, db, &mockWallet{}, payoutd.Policy{Asset: "XRP", Reserve: 100})
	_, err := proc.TopUpReserve("XRP", 50)
	require.NoError(t, err)

	proc = newProcessor(t, db, &mockWallet{}, payoutd.Policy{Asset: "XRP", Reserve: 100})
	balance, err := proc.Reserve("XRP")
	require.NoError(t, err)
	require.Equal(t, uint64(150), balance)
}

func TestPauseAndWalletFailure(t *testing.T) {
	mock := &mockWallet{}
	proc := newProcessor(t, storage.NewMemDB(), mock)
	batch := []payout.Instruction{{Recipient: recipient(1), Asset: types.NativeAsset, Amount: 10}}

	proc.Pause()
	_, err := proc.Emit(context.Background(), batch)
	require.ErrorIs(t, err, payoutd.ErrProcessorPaused)
	require.True(t, proc.Status().Paused)
	proc.Resume()

	mock.fail = errors.New("host unavailable")
	_, err = proc.Emit(context.Background(), batch)
	require.Error(t, err)
	require.Equal(t, 1, proc.Status().Failed)

	_, err = proc.Emit(context.Background(), []payout.Instruction{{Recipient: recipient(1), Asset: types.NativeAsset}})
	require.ErrorIs(t, err, payoutd.ErrInvalidBatch)
}

func TestLoadPolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- asset: xrp
  daily_cap: "50_000_000"
  boost_reserve: "10000000"
- asset: drip
  daily_cap: "0"
`), 0o600))
	policies, err := payoutd.LoadPolicies(path)
	require.NoError(t, err)
	require.Len(t, policies, 2)
	require.Equal(t, "XRP", policies[1].Asset)
	require.Equal(t, "DRIP", policies[0].Asset)
	require.Equal(t, uint64(50_000_000), policies[1].DailyCap)
	require.Equal(t, uint64(10_000_000), policies[1].Reserve)

	require.NoError(t, os.WriteFile(path, []byte("- asset: XRP\n- asset: xrp\n"), 0o600))
	_, err = payoutd.LoadPolicies(path)
	require.Error(t, err)
}

func TestAdminServer(t *testing.T) {
	proc := newProcessor(t, storage.NewMemDB(), &mockWallet{}, payoutd.Policy{Asset: "XRP"})
	server := payoutd.NewAdminServer(proc)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reserve", strings.NewReader(`{"asset":"XRP","amount":"2500"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"balance":"2500"`)

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pause", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"paused":true`)
}
