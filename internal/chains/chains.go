package chains

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	logger "github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/internal/autopay"
	autopayimpl "github.com/textileio/go-autopay/internal/autopay/impl"
	"github.com/textileio/go-autopay/pkg/gate"
	gateimpl "github.com/textileio/go-autopay/pkg/gate/impl"
	"github.com/textileio/go-autopay/pkg/identity"
	ledgerimpl "github.com/textileio/go-autopay/pkg/ledger/impl"
	"github.com/textileio/go-autopay/pkg/ledger/impl/ethereum"
	nonceimpl "github.com/textileio/go-autopay/pkg/nonce/impl"
	"github.com/textileio/go-autopay/pkg/submitter"
)

var log = logger.With().Str("component", "chainstack").Logger()

// State backends.
const (
	StateBackendMemory = "memory"
	StateBackendSQLite = "sqlite"
	StateBackendRedis  = "redis"
)

// StateConfig selects where the subscription state is persisted.
type StateConfig struct {
	Backend    string
	SQLitePath string
	Redis      gateimpl.RedisConfig
}

// Config is the configuration of a ChainStack.
type Config struct {
	ChainID     int64
	Backend     ethereum.Backend
	Token       common.Address
	Ledger      ethereum.Config
	Identities  identity.Provider
	Source      common.Address
	Destination common.Address
	Amount      *big.Int
	Interval    time.Duration
	State       StateConfig
}

// ChainStack contains the components transferring for the managed account on a specific chain.
type ChainStack struct {
	Address common.Address
	Ledger  *ethereum.Client
	Store   gate.StateStore
	Service autopay.AutoPay
	// Close gracefully closes all the chain stack components.
	Close func(ctx context.Context) error
}

// NewChainStack wires the ledger client, nonce cache, submitter, gate and service of the managed account.
func NewChainStack(ctx context.Context, cfg Config) (*ChainStack, error) {
	id, err := cfg.Identities.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting identity: %s", err)
	}

	ledger, err := ethereum.NewClient(cfg.Backend, cfg.Token, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("creating ledger client: %s", err)
	}
	instrLedger, err := ledgerimpl.NewInstrumentedClient(ledger, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("instrumenting ledger client: %s", err)
	}

	cache, err := nonceimpl.NewLocalCache(instrLedger, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("creating nonce cache: %s", err)
	}

	sub := submitter.New(cfg.Identities, cache, instrLedger, submitter.Config{
		Source:      cfg.Source,
		Destination: cfg.Destination,
		ChainID:     big.NewInt(cfg.ChainID),
	})

	store, closeStore, err := newStateStore(ctx, cfg.State, id.Address)
	if err != nil {
		return nil, fmt.Errorf("creating state store: %s", err)
	}

	g, err := gate.NewPeriodicGate(sub, store, cfg.Interval)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("creating periodic gate: %s", err)
	}

	svc, err := autopayimpl.NewService(sub, g, cfg.Amount)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("creating service: %s", err)
	}
	instrSvc, err := autopayimpl.NewInstrumentedService(svc)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("instrumenting service: %s", err)
	}

	log.Info().
		Int64("chain_id", cfg.ChainID).
		Str("address", id.Address.Hex()).
		Str("token", cfg.Token.Hex()).
		Str("source", cfg.Source.Hex()).
		Str("amount", cfg.Amount.String()).
		Dur("interval", cfg.Interval).
		Str("state_backend", cfg.State.Backend).
		Msg("chain stack created")

	return &ChainStack{
		Address: id.Address,
		Ledger:  ledger,
		Store:   store,
		Service: instrSvc,
		Close: func(ctx context.Context) error {
			if err := closeStore(); err != nil {
				return fmt.Errorf("closing state store: %s", err)
			}
			return nil
		},
	}, nil
}

func newStateStore(
	ctx context.Context,
	cfg StateConfig,
	address common.Address,
) (gate.StateStore, func() error, error) {
	switch strings.ToLower(cfg.Backend) {
	case StateBackendMemory:
		return gateimpl.NewMemoryStore(), func() error { return nil }, nil
	case StateBackendSQLite, "":
		s, err := gateimpl.NewSQLiteStore(cfg.SQLitePath, address)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case StateBackendRedis:
		s, err := gateimpl.NewRedisStore(ctx, cfg.Redis, address)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
