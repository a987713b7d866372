package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
	"github.com/textileio/go-autopay/pkg/identity"
	"github.com/textileio/go-autopay/pkg/ledger"
)

// Backend is the chain access the client needs. Both *ethclient.Client and the
// simulated backend satisfy it.
type Backend interface {
	bind.ContractBackend
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// possibleRejections are error messages nodes use when refusing a transaction.
var possibleRejections = []string{
	"nonce too low",
	"nonce too high",
	"invalid transaction nonce",
	"insufficient funds",
	"replacement transaction underpriced",
	"already known",
	"intrinsic gas too low",
	"exceeds block gas limit",
	"invalid sender",
	"invalid chain id",
	"execution reverted",
	"gas required exceeds allowance",
}

// Config configures the ledger client.
type Config struct {
	// GasLimit is the fixed gas limit of transfer transactions. Zero estimates it, so a transfer
	// that would revert is refused before being sent.
	GasLimit uint64
	// ConfirmPending makes transactions known by the node but not yet mined count as confirmed.
	ConfirmPending bool
	// CallTimeout bounds every call to the node. Zero disables it.
	CallTimeout time.Duration
}

// DefaultConfig is the configuration used when none is provided.
var DefaultConfig = Config{
	GasLimit:       0,
	ConfirmPending: true,
	CallTimeout:    30 * time.Second,
}

// Client is the Ethereum implementation of ledger.Client for an ERC-20 token.
type Client struct {
	log      zerolog.Logger
	backend  Backend
	token    common.Address
	contract *bind.BoundContract
	config   Config
}

var _ ledger.Client = (*Client)(nil)

// NewClient creates a new Client transferring the token deployed at tokenAddr.
func NewClient(backend Backend, tokenAddr common.Address, config Config) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parsing erc20 abi: %s", err)
	}
	return &Client{
		log: logger.With().
			Str("component", "ledger").
			Str("token", tokenAddr.Hex()).
			Logger(),
		backend:  backend,
		token:    tokenAddr,
		contract: bind.NewBoundContract(tokenAddr, parsed, backend, backend, backend),
		config:   config,
	}, nil
}

// SequenceNumber returns the pending nonce of the account.
func (c *Client) SequenceNumber(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	nonce, err := c.backend.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("pending nonce at: %w", err)
	}
	return nonce, nil
}

// Submit builds, signs and sends a transferFrom call for the request.
func (c *Client) Submit(ctx context.Context, id identity.Identity, req ledger.TransactionRequest) (common.Hash, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return common.Hash{}, &ledger.RejectedError{Reason: "amount must be positive"}
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	opts := &bind.TransactOpts{
		Context:  ctx,
		From:     id.Address,
		Signer:   id.Signer,
		Nonce:    new(big.Int).SetUint64(req.Nonce),
		GasPrice: gasPrice,
		GasLimit: c.config.GasLimit,
		NoSend:   true,
	}
	tx, err := c.contract.Transact(opts, "transferFrom", req.From, req.To, req.Amount)
	if errors.Is(err, bind.ErrNoCode) {
		return common.Hash{}, &ledger.RejectedError{Reason: fmt.Sprintf("no token contract at %s", c.token.Hex()), Err: err}
	}
	if err != nil {
		return common.Hash{}, classifyError("building transferFrom transaction", err)
	}
	if req.ChainID != nil && tx.ChainId().Cmp(req.ChainID) != 0 {
		return common.Hash{}, &ledger.RejectedError{
			Reason: fmt.Sprintf("signed for chain %s, expected %s", tx.ChainId(), req.ChainID),
		}
	}

	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, classifyError("send transaction", err)
	}

	c.log.Info().
		Str("hash", tx.Hash().Hex()).
		Uint64("nonce", tx.Nonce()).
		Str("from", req.From.Hex()).
		Str("to", req.To.Hex()).
		Str("amount", req.Amount.String()).
		Msg("transaction sent")

	return tx.Hash(), nil
}

// Transaction looks up a transaction by hash.
func (c *Client) Transaction(ctx context.Context, hash common.Hash) (ledger.TransactionReceipt, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tx, isPending, err := c.backend.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return ledger.TransactionReceipt{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.TransactionReceipt{}, fmt.Errorf("transaction by hash: %w", err)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return ledger.TransactionReceipt{}, fmt.Errorf("recovering transaction sender: %w", err)
	}

	receipt := ledger.TransactionReceipt{
		Hash:      hash,
		Nonce:     tx.Nonce(),
		Sender:    sender,
		Pending:   isPending,
		Confirmed: !isPending || c.config.ConfirmPending,
	}
	if !isPending {
		r, err := c.backend.TransactionReceipt(ctx, hash)
		if err != nil {
			c.log.Warn().Err(err).Str("hash", hash.Hex()).Msg("mined transaction without receipt")
		} else {
			receipt.BlockNumber = r.BlockNumber.Uint64()
			receipt.Reverted = r.Status == types.ReceiptStatusFailed
		}
	}

	return receipt, nil
}

// Allowance returns how many tokens spender may transfer on behalf of owner.
func (c *Client) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return c.callUint256(ctx, "allowance", owner, spender)
}

// BalanceOf returns the token balance of account.
func (c *Client) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.callUint256(ctx, "balanceOf", account)
}

func (c *Client) callUint256(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s output length %d", method, len(out))
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, out[0])
	}
	return value, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.CallTimeout)
}

// classifyError tells ledger refusals, including gas estimations that revert, from transport failures.
func classifyError(op string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &ledger.RejectedError{Reason: rpcErr.Error(), Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, reason := range possibleRejections {
		if strings.Contains(msg, reason) {
			return &ledger.RejectedError{Reason: err.Error(), Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
