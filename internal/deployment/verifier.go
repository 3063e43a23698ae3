package deployment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/supp-dex/instance-api/internal/chain"
	"github.com/supp-dex/instance-api/internal/domain"
	"github.com/supp-dex/instance-api/internal/logger"
)

const (
	verifyRetryInterval = 2 * time.Second
	verifyMaxRetries    = 3
)

// Verifier confirms that the contracts a descriptor references are live on the
// current chain before the service accepts any traffic
type Verifier struct {
	chain chain.Client
}

// NewVerifier creates a new deployment verifier
func NewVerifier(chainClient chain.Client) *Verifier {
	return &Verifier{chain: chainClient}
}

// Verify checks that the setup and proxy contracts still carry bytecode.
// Transient RPC failures are retried (the node may still be starting up); a
// contract with no code is permanent and fails immediately. The chain node may
// have restarted and lost state while the descriptor on disk still references
// old addresses, and serving traffic against that mismatch would corrupt every
// dependent session.
func (v *Verifier) Verify(ctx context.Context, d domain.Deployment) error {
	check := func() error {
		var stale []string
		for _, contract := range []struct {
			name string
			addr common.Address
		}{
			{"setup", d.Setup},
			{"proxy", d.Proxy},
		} {
			ok, err := v.chain.HasCode(ctx, contract.addr)
			if err != nil {
				return fmt.Errorf("failed to verify %s contract: %w", contract.name, err)
			}
			if !ok {
				stale = append(stale, fmt.Sprintf("%s (%s)", contract.name, contract.addr.Hex()))
			}
		}

		if len(stale) > 0 {
			return backoff.Permanent(fmt.Errorf(
				"%w: %s has no bytecode; the chain node likely restarted, redeploy before starting the API",
				domain.ErrStaleDeployment, strings.Join(stale, ", ")))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(verifyRetryInterval), verifyMaxRetries), ctx)

	if err := backoff.RetryNotify(check, policy, func(err error, wait time.Duration) {
		logger.Warn("Deployment verification failed, retrying",
			zap.Error(err),
			zap.Duration("retry_in", wait),
		)
	}); err != nil {
		return err
	}

	logger.Info("Deployment verified",
		zap.String("setup", d.Setup.Hex()),
		zap.String("proxy", d.Proxy.Hex()),
	)
	return nil
}
