package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/supp-dex/instance-api/internal/adapter"
	"github.com/supp-dex/instance-api/internal/domain"
	"github.com/supp-dex/instance-api/internal/logger"
)

// isSolvedABI is the view exposed by the setup contract that reports whether
// the challenge condition has been met.
const isSolvedABI = `[{"name":"isSolved","type":"function","stateMutability":"view","inputs":[],"outputs":[{"type":"bool"}]}]`

// transferGasLimit is the fixed gas cost of a plain value transfer
const transferGasLimit = 21000

// Client is the gateway for every chain interaction the service performs
//
//go:generate mockgen -source=client.go -destination=../mocks/chain_client.go -package=mocks -mock_names=Client=MockChainClient
type Client interface {
	// HasCode reports whether executable bytecode is present at the address
	HasCode(ctx context.Context, addr common.Address) (bool, error)

	// Balance returns the current wei balance of the address
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)

	// IsSolved calls the isSolved() view on the setup contract. The result is
	// never cached; every call reflects current on-chain state.
	IsSolved(ctx context.Context, setup common.Address) (bool, error)

	// Fund transfers amount wei from the deployer account to the address and
	// waits for the transaction to be confirmed. The returned hash is valid
	// whenever the transaction was broadcast. A broadcast that does not confirm
	// within the configured timeout returns domain.ErrConfirmationTimeout.
	Fund(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)

	// ConfirmFunding re-polls the receipt of a previously broadcast funding
	// transaction. It returns nil once the transaction is mined,
	// domain.ErrFundingDropped when it is neither mined nor pending, and
	// domain.ErrConfirmationTimeout when it is still unconfirmed at the deadline.
	ConfirmFunding(ctx context.Context, txHash common.Hash) error

	// DeployerAddress returns the address of the funding account
	DeployerAddress() common.Address

	// Close closes the underlying connection
	Close()
}

// Config holds chain client configuration
type Config struct {
	ChainID             *big.Int
	ConfirmTimeout      time.Duration
	ReceiptPollInterval time.Duration
}

type client struct {
	cfg       Config
	eth       adapter.EthClient
	clock     adapter.Clock
	deployer  *ecdsa.PrivateKey
	from      common.Address
	solvedABI abi.ABI
}

// NewClient creates a new chain client signing funding transactions with the
// deployer key
func NewClient(cfg Config, eth adapter.EthClient, clock adapter.Clock, deployer *ecdsa.PrivateKey) (Client, error) {
	if cfg.ChainID == nil {
		return nil, errors.New("chain ID is required")
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 30 * time.Second
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 500 * time.Millisecond
	}

	parsed, err := abi.JSON(strings.NewReader(isSolvedABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse isSolved ABI: %w", err)
	}

	return &client{
		cfg:       cfg,
		eth:       eth,
		clock:     clock,
		deployer:  deployer,
		from:      crypto.PubkeyToAddress(deployer.PublicKey),
		solvedABI: parsed,
	}, nil
}

// HasCode reports whether executable bytecode is present at the address
func (c *client) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at %s: %w", addr.Hex(), err)
	}
	return len(code) > 0, nil
}

// Balance returns the current wei balance of the address
func (c *client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", addr.Hex(), err)
	}
	return bal, nil
}

// IsSolved calls the isSolved() view on the setup contract
func (c *client) IsSolved(ctx context.Context, setup common.Address) (bool, error) {
	input, err := c.solvedABI.Pack("isSolved")
	if err != nil {
		return false, fmt.Errorf("failed to pack isSolved call: %w", err)
	}

	output, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &setup, Data: input}, nil)
	if err != nil {
		return false, fmt.Errorf("isSolved call failed: %w", err)
	}

	results, err := c.solvedABI.Unpack("isSolved", output)
	if err != nil {
		return false, fmt.Errorf("failed to unpack isSolved result: %w", err)
	}

	solved, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isSolved result type %T", results[0])
	}
	return solved, nil
}

// Fund transfers amount wei from the deployer account to the address and waits
// for the transaction to be confirmed
func (c *client) Fund(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get deployer nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, amount, transferGasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.cfg.ChainID), c.deployer)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign funding transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send funding transaction: %w", err)
	}

	txHash := signed.Hash()
	logger.Debug("Funding transaction sent",
		zap.String("to", to.Hex()),
		zap.String("tx_hash", txHash.Hex()),
		zap.String("amount_wei", amount.String()),
	)

	return txHash, c.waitMined(ctx, txHash, false)
}

// ConfirmFunding re-polls the receipt of a previously broadcast funding
// transaction
func (c *client) ConfirmFunding(ctx context.Context, txHash common.Hash) error {
	return c.waitMined(ctx, txHash, true)
}

// waitMined polls for the transaction receipt until it lands or the
// confirmation timeout elapses. Once the transaction is broadcast, every
// failure mode except a mined-and-reverted receipt is reported as
// domain.ErrConfirmationTimeout (or domain.ErrFundingDropped when checkDropped
// finds the transaction gone): a transient poll failure or a canceled request
// context must never look like a pre-broadcast failure, or callers would fund
// a second time.
func (c *client) waitMined(ctx context.Context, txHash common.Hash, checkDropped bool) error {
	deadline := c.clock.Now().Add(c.cfg.ConfirmTimeout)

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("funding transaction %s reverted", txHash.Hex())
			}
			return nil
		case errors.Is(err, ethereum.NotFound):
			if checkDropped {
				if _, _, txErr := c.eth.TransactionByHash(ctx, txHash); errors.Is(txErr, ethereum.NotFound) {
					return fmt.Errorf("transaction %s is neither mined nor pending: %w",
						txHash.Hex(), domain.ErrFundingDropped)
				}
			}
		default:
			// Transient poll failure after broadcast, keep polling
			logger.Warn("Receipt poll failed",
				zap.String("tx_hash", txHash.Hex()),
				zap.Error(err),
			)
		}

		if c.clock.Now().After(deadline) {
			// The transaction was broadcast and may still land later. Surface
			// a distinct error so callers do not retry the funding path.
			return fmt.Errorf("no receipt for %s within %s: %w",
				txHash.Hex(), c.cfg.ConfirmTimeout, domain.ErrConfirmationTimeout)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("receipt wait for %s aborted: %w",
				txHash.Hex(), domain.ErrConfirmationTimeout)
		case <-c.clock.After(c.cfg.ReceiptPollInterval):
		}
	}
}

// DeployerAddress returns the address of the funding account
func (c *client) DeployerAddress() common.Address {
	return c.from
}

// Close closes the underlying connection
func (c *client) Close() {
	c.eth.Close()
}
