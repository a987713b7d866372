package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/buildinfo"
	"github.com/textileio/go-autopay/internal/chains"
	"github.com/textileio/go-autopay/internal/router"
	"github.com/textileio/go-autopay/internal/scheduler"
	chainspkg "github.com/textileio/go-autopay/pkg/chains"
	gateimpl "github.com/textileio/go-autopay/pkg/gate/impl"
	"github.com/textileio/go-autopay/pkg/identity"
	identityimpl "github.com/textileio/go-autopay/pkg/identity/impl"
	"github.com/textileio/go-autopay/pkg/ledger/impl/ethereum"
	"github.com/textileio/go-autopay/pkg/logging"
	"github.com/textileio/go-autopay/pkg/metrics"
	"github.com/textileio/go-autopay/pkg/wallet"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := setupConfig()
	logging.SetupLogger(buildinfo.GitCommit, cfg.Log.Debug, cfg.Log.Human)
	closeMetrics, err := metrics.SetupInstrumentation(":"+cfg.Metrics.Port, "autopay")
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Metrics.Port).Msg("could not setup instrumentation")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	chain, err := chainspkg.ByName(cfg.Chain.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to get chain")
	}

	endpoint := cfg.Chain.EthEndpoint
	if endpoint == "" {
		endpoint, err = chainspkg.EndpointURL(cfg.Chain.Provider, chain.ID, cfg.Chain.ProviderAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("resolving chain endpoint")
		}
	}
	conn, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		log.Fatal().Err(err).Str("chain", chain.Name).Msg("failed to connect to ethereum endpoint")
	}
	remoteChainID, err := conn.ChainID(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("getting chain id from endpoint")
	}
	if remoteChainID.Int64() != int64(chain.ID) {
		log.Fatal().
			Int64("expected", int64(chain.ID)).
			Int64("remote", remoteChainID.Int64()).
			Msg("endpoint serves a different chain")
	}

	token := chain.Token
	if cfg.Chain.Token != "" {
		if !common.IsHexAddress(cfg.Chain.Token) {
			log.Fatal().Str("token", cfg.Chain.Token).Msg("token is not a valid address")
		}
		token = common.HexToAddress(cfg.Chain.Token)
	}
	if token == (common.Address{}) {
		log.Fatal().Str("chain", chain.Name).Msg("chain has no token contract, configure one")
	}

	identities, err := identityProvider(cfg, big.NewInt(int64(chain.ID)))
	if err != nil {
		log.Fatal().Err(err).Msg("creating identity provider")
	}

	stackCfg, err := stackConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing transfer configuration")
	}
	stackCfg.ChainID = int64(chain.ID)
	stackCfg.Backend = conn
	stackCfg.Token = token
	stackCfg.Identities = identities

	stack, err := chains.NewChainStack(ctx, stackCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("creating chain stack")
	}

	if allowance, err := stack.Ledger.Allowance(ctx, stackCfg.Source, stack.Address); err != nil {
		log.Warn().Err(err).Msg("checking allowance")
	} else {
		log.Info().
			Str("source", stackCfg.Source.Hex()).
			Str("spender", stack.Address.Hex()).
			Str("allowance", allowance.String()).
			Msg("token allowance")
	}

	rateLimInterval, err := time.ParseDuration(cfg.HTTP.RateLimInterval)
	if err != nil {
		log.Fatal().Err(err).Msgf("rate limit interval has invalid format: %s", cfg.HTTP.RateLimInterval)
	}
	rtr, err := router.ConfiguredRouter(
		stack.Service,
		cfg.HTTP.MaxRequestPerInterval,
		cfg.HTTP.MaxTransferPerInterval,
		rateLimInterval,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("configuring router")
	}
	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           rtr.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("serving http")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %s", err)
		}
		return nil
	})

	var sched *scheduler.Scheduler
	if cfg.Transfer.Scheduler {
		checkInterval, err := time.ParseDuration(cfg.Transfer.CheckInterval)
		if err != nil {
			log.Fatal().Err(err).Msgf("check interval has invalid format: %s", cfg.Transfer.CheckInterval)
		}
		sched, err = scheduler.NewScheduler(checkInterval, stack.Service, false)
		if err != nil {
			log.Fatal().Err(err).Msg("creating scheduler")
		}
		g.Go(func() error {
			sched.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if sched != nil {
			sched.Shutdown()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutting down http server")
		}
		if err := stack.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("closing chain stack")
		}
		conn.Close()
		if err := closeMetrics(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("closing metrics")
		}
		return nil
	})

	log.Info().
		Str("address", stack.Address.Hex()).
		Str("chain", chain.Name).
		Object("build", buildinfo.GetSummary()).
		Msg("daemon started")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("daemon stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("daemon closed")
}

func identityProvider(cfg *config, chainID *big.Int) (identity.Provider, error) {
	switch {
	case cfg.Signer.KeystorePath != "":
		return identityimpl.NewKeystoreProvider(cfg.Signer.KeystorePath, cfg.Signer.KeystorePassphrase, chainID), nil
	case cfg.Signer.PrivateKey != "":
		w, err := wallet.NewWallet(cfg.Signer.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("unable to create wallet from private key string: %s", err)
		}
		return identityimpl.NewStaticProvider(w, chainID), nil
	default:
		return nil, errors.New("either a private key or a keystore path must be configured")
	}
}

func stackConfig(cfg *config) (chains.Config, error) {
	if !common.IsHexAddress(cfg.Transfer.Source) {
		return chains.Config{}, fmt.Errorf("source is not a valid address: %s", cfg.Transfer.Source)
	}
	var destination common.Address
	if cfg.Transfer.Destination != "" {
		if !common.IsHexAddress(cfg.Transfer.Destination) {
			return chains.Config{}, fmt.Errorf("destination is not a valid address: %s", cfg.Transfer.Destination)
		}
		destination = common.HexToAddress(cfg.Transfer.Destination)
	}
	amount, ok := new(big.Int).SetString(cfg.Transfer.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return chains.Config{}, fmt.Errorf("amount must be a positive integer: %s", cfg.Transfer.Amount)
	}
	interval, err := time.ParseDuration(cfg.Transfer.Interval)
	if err != nil {
		return chains.Config{}, fmt.Errorf("interval has invalid format: %s", cfg.Transfer.Interval)
	}
	callTimeout, err := time.ParseDuration(cfg.Ledger.CallTimeout)
	if err != nil {
		return chains.Config{}, fmt.Errorf("call timeout has invalid format: %s", cfg.Ledger.CallTimeout)
	}

	return chains.Config{
		Ledger: ethereum.Config{
			GasLimit:       cfg.Ledger.GasLimit,
			ConfirmPending: cfg.Ledger.ConfirmPending,
			CallTimeout:    callTimeout,
		},
		Source:      common.HexToAddress(cfg.Transfer.Source),
		Destination: destination,
		Amount:      amount,
		Interval:    interval,
		State: chains.StateConfig{
			Backend:    cfg.State.Backend,
			SQLitePath: cfg.State.SQLitePath,
			Redis: gateimpl.RedisConfig{
				Address:  cfg.State.RedisAddress,
				Password: cfg.State.RedisPassword,
				DB:       cfg.State.RedisDB,
				Prefix:   cfg.State.RedisPrefix,
			},
		},
	}, nil
}
