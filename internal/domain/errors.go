package domain

import "errors"

var (
	// ErrProvisioningInProgress is returned when a concurrent request is already
	// funding a wallet for the same session
	ErrProvisioningInProgress = errors.New("wallet provisioning already in progress")

	// ErrConfirmationTimeout is returned when a funding transaction was broadcast
	// but no receipt arrived within the confirmation timeout. The transaction may
	// still land, so callers must not re-run the funding path.
	ErrConfirmationTimeout = errors.New("funding confirmation timed out")

	// ErrFundingDropped is returned when a previously broadcast funding
	// transaction is neither mined nor pending anymore, so funding again is safe
	ErrFundingDropped = errors.New("funding transaction dropped")

	// ErrStaleDeployment is returned when the deployment descriptor references
	// contracts that have no bytecode on the current chain
	ErrStaleDeployment = errors.New("stale deployment")
)
