package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/supp-dex/instance-api/internal/chain"
	"github.com/supp-dex/instance-api/internal/domain"
	"github.com/supp-dex/instance-api/internal/logger"
)

// Provisioner generates and funds one wallet per session
type Provisioner struct {
	chain      chain.Client
	fundAmount *big.Int
}

// NewProvisioner creates a new wallet provisioner funding each wallet with
// fundAmount wei from the deployer account
func NewProvisioner(chainClient chain.Client, fundAmount *big.Int) *Provisioner {
	return &Provisioner{chain: chainClient, fundAmount: fundAmount}
}

// EnsureWallet returns the session's wallet, generating and funding one if the
// session has none. The funding transaction happens at most once per session:
// the session is claimed before the first chain call, so a concurrent caller
// gets domain.ErrProvisioningInProgress instead of re-running the funding path,
// and an earlier broadcast whose receipt never arrived is re-polled instead of
// being funded over.
func (p *Provisioner) EnsureWallet(ctx context.Context, s *State) (*domain.Wallet, error) {
	wallet, pending, claimed, inFlight := s.claim()
	if wallet != nil {
		return wallet, nil
	}
	if inFlight || !claimed {
		return nil, domain.ErrProvisioningInProgress
	}
	if pending != nil {
		return p.resumePending(ctx, s, pending)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		s.release()
		return nil, fmt.Errorf("failed to generate session keypair: %w", err)
	}

	wallet = &domain.Wallet{
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}

	txHash, err := p.chain.Fund(ctx, wallet.Address, p.fundAmount)
	if err != nil {
		if errors.Is(err, domain.ErrConfirmationTimeout) {
			// The transaction may still land. Remember it so the next attempt
			// re-polls the receipt instead of funding a second time.
			s.suspend(&pendingFunding{wallet: wallet, txHash: txHash})
			logger.Warn("Funding confirmation timed out, receipt check deferred",
				zap.String("address", wallet.Address.Hex()),
				zap.String("tx_hash", txHash.Hex()),
				zap.Error(err),
			)
			return nil, err
		}
		// Nothing was committed on chain, safe to let the caller retry.
		s.release()
		return nil, fmt.Errorf("failed to fund session wallet: %w", err)
	}

	s.complete(wallet)
	logger.Info("Session wallet funded",
		zap.String("address", wallet.Address.Hex()),
		zap.String("amount_wei", p.fundAmount.String()),
	)
	return wallet, nil
}

// resumePending resolves an earlier broadcast before any new funding may
// happen: attach the wallet once the transaction mined, fund afresh only after
// the network has definitively dropped it, stay suspended otherwise.
func (p *Provisioner) resumePending(ctx context.Context, s *State, pending *pendingFunding) (*domain.Wallet, error) {
	err := p.chain.ConfirmFunding(ctx, pending.txHash)
	switch {
	case err == nil:
		s.complete(pending.wallet)
		logger.Info("Deferred funding confirmed",
			zap.String("address", pending.wallet.Address.Hex()),
			zap.String("tx_hash", pending.txHash.Hex()),
		)
		return pending.wallet, nil
	case errors.Is(err, domain.ErrFundingDropped):
		s.release()
		return nil, fmt.Errorf("earlier funding transaction did not land: %w", err)
	default:
		// Still unconfirmed, or could not tell either way. Keep the pending
		// record so no second funding can happen.
		s.suspend(pending)
		return nil, err
	}
}
