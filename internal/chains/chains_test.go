package chains

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/textileio/go-autopay/internal/autopay"
	gateimpl "github.com/textileio/go-autopay/pkg/gate/impl"
	identityimpl "github.com/textileio/go-autopay/pkg/identity/impl"
	"github.com/textileio/go-autopay/pkg/ledger/impl/ethereum"
	"github.com/textileio/go-autopay/pkg/wallet"
	"github.com/textileio/go-autopay/tests"
)

func TestChainStack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backends := map[string]func(t *testing.T) StateConfig{
		"memory": func(t *testing.T) StateConfig {
			return StateConfig{Backend: StateBackendMemory}
		},
		"sqlite": func(t *testing.T) StateConfig {
			return StateConfig{Backend: StateBackendSQLite, SQLitePath: tests.Sqlite3URI(t)}
		},
		"redis": func(t *testing.T) StateConfig {
			mr := miniredis.RunT(t)
			return StateConfig{Backend: StateBackendRedis, Redis: gateimpl.RedisConfig{Address: mr.Addr()}}
		},
	}

	for name, stateCfg := range backends {
		stateCfg := stateCfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			chain := tests.NewSimulatedChain(t)
			stack := newStack(t, chain, stateCfg(t))

			desc, err := stack.Service.TransferPeriodically(ctx)
			require.NoError(t, err)
			require.Contains(t, desc, "nonce: 0")

			_, err = stack.Service.TransferPeriodically(ctx)
			require.ErrorIs(t, err, autopay.ErrTransferNotDue)

			state, err := stack.Store.Load(ctx)
			require.NoError(t, err)
			require.NotZero(t, state.LastTransferTime)
		})
	}
}

func TestUnknownStateBackend(t *testing.T) {
	t.Parallel()

	chain := tests.NewSimulatedChain(t)
	_, err := NewChainStack(context.Background(), config(t, chain, StateConfig{Backend: "etcd"}))
	require.Error(t, err)
}

func newStack(t *testing.T, chain *tests.SimulatedChain, state StateConfig) *ChainStack {
	t.Helper()

	stack, err := NewChainStack(context.Background(), config(t, chain, state))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, stack.Close(context.Background()))
	})
	require.Equal(t, chain.Address, stack.Address)
	return stack
}

func config(t *testing.T, chain *tests.SimulatedChain, state StateConfig) Config {
	t.Helper()

	w, err := wallet.NewWalletFromKey(chain.PrivateKey)
	require.NoError(t, err)

	return Config{
		ChainID:    chain.ChainID.Int64(),
		Backend:    chain.Backend,
		Token:      chain.Token,
		Ledger:     ethereum.DefaultConfig,
		Identities: identityimpl.NewStaticProvider(w, chain.ChainID),
		Source:     chain.Payer,
		Amount:     big.NewInt(1),
		Interval:   24 * time.Hour,
		State:      state,
	}
}
