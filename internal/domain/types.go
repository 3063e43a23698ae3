package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Deployment describes the on-chain contracts a challenge instance depends on.
// It is read once from the deployment descriptor at startup and never mutated.
type Deployment struct {
	Deployer common.Address `json:"deployer"`
	Setup    common.Address `json:"setup"`
	Proxy    common.Address `json:"proxy"`
	Rescue   common.Address `json:"rescue"`
}

// Valid reports whether the descriptor references all required contracts.
// The rescue contract is optional; deployer, setup and proxy are not.
func (d Deployment) Valid() bool {
	zero := common.Address{}
	return d.Deployer != zero && d.Setup != zero && d.Proxy != zero
}

// Wallet is a generated keypair handed to a player session. Once attached to a
// session it is never regenerated.
type Wallet struct {
	Address    common.Address `json:"address"`
	PrivateKey string         `json:"privateKey"`
}

// Funder identifies the account that funds session wallets. The private key is
// only populated when the operator chooses to disclose it.
type Funder struct {
	Address    common.Address `json:"address"`
	PrivateKey string         `json:"privateKey,omitempty"`
}

// Flag is one secret record as exposed over the API.
type Flag struct {
	ID   string `json:"id"`
	Flag string `json:"flag"`
}

// SessionInfo is the read-only view of a session returned by handlers.
type SessionInfo struct {
	CreatedAt time.Time `json:"createdAt"`
	Wallet    *Wallet   `json:"wallet"`
}
