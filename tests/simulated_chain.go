package tests

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/backends"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// SimulatedChainID is the chain id used by the simulated backend.
const SimulatedChainID = 1337

// PayerAllowance is the token allowance the payer grants to the funded account.
var PayerAllowance = big.NewInt(1_000_000)

// SimulatedChain is a simulated Ethereum backend with a funded account and a deployed token.
type SimulatedChain struct {
	ChainID *big.Int
	Backend *backends.SimulatedBackend

	// funded account
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address

	// Payer holds the whole token supply and approved PayerAllowance to Address.
	PayerKey *ecdsa.PrivateKey
	Payer    common.Address

	Token         common.Address
	tokenContract *bind.BoundContract
}

// NewSimulatedChain creates a new simulated chain whose funded account can pay for gas and
// pull tokens from the payer.
func NewSimulatedChain(t *testing.T) *SimulatedChain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	payerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	payer := crypto.PubkeyToAddress(payerKey.PublicKey)

	balance, ok := new(big.Int).SetString("1000000000000000000000", 10)
	require.True(t, ok)

	alloc := make(core.GenesisAlloc)
	alloc[addr] = core.GenesisAccount{Balance: balance}
	alloc[payer] = core.GenesisAccount{Balance: balance}
	backend := backends.NewSimulatedBackend(alloc, 10_000_000)
	t.Cleanup(func() {
		_ = backend.Close()
	})

	c := &SimulatedChain{
		ChainID:    big.NewInt(SimulatedChainID),
		Backend:    backend,
		PrivateKey: key,
		Address:    addr,
		PayerKey:   payerKey,
		Payer:      payer,
	}
	c.deployToken(t)
	c.Approve(t, c.PayerKey, c.Address, PayerAllowance)

	return c
}

func (c *SimulatedChain) deployToken(t *testing.T) {
	t.Helper()

	parsed, err := parseTokenABI()
	require.NoError(t, err)

	opts, err := bind.NewKeyedTransactorWithChainID(c.PayerKey, c.ChainID)
	require.NoError(t, err)
	token, _, contract, err := bind.DeployContract(opts, parsed, common.FromHex(tokenBin), c.Backend)
	require.NoError(t, err)
	c.Backend.Commit()

	code, err := c.Backend.CodeAt(context.Background(), token, nil)
	require.NoError(t, err)
	require.NotEmpty(t, code)

	c.Token = token
	c.tokenContract = contract
}

// Approve lets spender transfer amount tokens of the owner key, and mines it.
func (c *SimulatedChain) Approve(t *testing.T, owner *ecdsa.PrivateKey, spender common.Address, amount *big.Int) {
	t.Helper()

	opts, err := bind.NewKeyedTransactorWithChainID(owner, c.ChainID)
	require.NoError(t, err)
	tx, err := c.tokenContract.Transact(opts, "approve", spender, amount)
	require.NoError(t, err)
	c.Backend.Commit()

	receipt, err := c.Backend.TransactionReceipt(context.Background(), tx.Hash())
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
}

// TokenBalance returns the mined token balance of account.
func (c *SimulatedChain) TokenBalance(t *testing.T, account common.Address) *big.Int {
	t.Helper()

	var out []interface{}
	err := c.tokenContract.Call(&bind.CallOpts{Context: context.Background()}, &out, "balanceOf", account)
	require.NoError(t, err)
	require.Len(t, out, 1)
	balance, ok := out[0].(*big.Int)
	require.True(t, ok)
	return balance
}

// SendValue transfers wei from the funded account to a random address and mines it.
// It's useful to move the account nonce outside of the code under test.
func (c *SimulatedChain) SendValue(t *testing.T) common.Hash {
	t.Helper()

	ctx := context.Background()
	opts, err := bind.NewKeyedTransactorWithChainID(c.PrivateKey, c.ChainID)
	require.NoError(t, err)

	gasPrice, err := c.Backend.SuggestGasPrice(ctx)
	require.NoError(t, err)

	nonce, err := c.Backend.PendingNonceAt(ctx, c.Address)
	require.NoError(t, err)

	to := common.BigToAddress(big.NewInt(0xdead))
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
	})
	signedTx, err := opts.Signer(c.Address, tx)
	require.NoError(t, err)

	require.NoError(t, c.Backend.SendTransaction(ctx, signedTx))
	c.Backend.Commit()

	receipt, err := c.Backend.TransactionReceipt(ctx, signedTx.Hash())
	require.NoError(t, err)
	require.NotNil(t, receipt)

	return signedTx.Hash()
}
