package rest

import (
	"encoding/json"

	"github.com/supp-dex/instance-api/internal/domain"
)

// sessionResponse is the body for POST /session
type sessionResponse struct {
	OK  bool   `json:"ok"`
	SID string `json:"sid"`
}

// publicDeployment is the deployment view handed to players when they request
// a wallet; the deployer address is withheld there.
type publicDeployment struct {
	Setup  string `json:"setup"`
	Proxy  string `json:"proxy"`
	Rescue string `json:"rescue"`
}

func newPublicDeployment(d domain.Deployment) publicDeployment {
	return publicDeployment{
		Setup:  d.Setup.Hex(),
		Proxy:  d.Proxy.Hex(),
		Rescue: d.Rescue.Hex(),
	}
}

// createWalletResponse is the body for POST /wallet
type createWalletResponse struct {
	OK         bool             `json:"ok"`
	SID        string           `json:"sid"`
	Wallet     *domain.Wallet   `json:"wallet"`
	Funder     domain.Funder    `json:"funder"`
	Deployment publicDeployment `json:"deployment"`
}

// getWalletResponse is the body for GET /wallet. The embedded session view
// contributes the createdAt and wallet fields.
type getWalletResponse struct {
	OK  bool   `json:"ok"`
	SID string `json:"sid"`
	domain.SessionInfo
	Deployment domain.Deployment `json:"deployment"`
}

// flagResponse is the body for GET /flags/:id
type flagResponse struct {
	OK   bool   `json:"ok"`
	ID   string `json:"id"`
	Flag string `json:"flag"`
}

// flagCountResponse is the body for flag writes and GET /flags/count
type flagCountResponse struct {
	OK    bool  `json:"ok"`
	Count int64 `json:"count"`
}

// putFlagsRequest is the body for POST /flags. Either a single {id, flag}
// pair, or a batch under "flags" as an object of id->flag or an array of
// {id, flag} entries.
type putFlagsRequest struct {
	ID    string          `json:"id"`
	Flag  string          `json:"flag"`
	Flags json.RawMessage `json:"flags"`
}

// isSolvedResponse is the body for GET /isSolved. Flags are only present once
// the on-chain predicate reports solved.
type isSolvedResponse struct {
	OK     bool          `json:"ok"`
	Solved bool          `json:"solved"`
	Flags  []domain.Flag `json:"flags,omitempty"`
}

// deploymentResponse is the body for GET /deployment
type deploymentResponse struct {
	OK              bool              `json:"ok"`
	Deployment      domain.Deployment `json:"deployment"`
	ProxyBalanceETH string            `json:"proxyBalanceETH"`
}

// healthResponse is the body for GET /_health
type healthResponse struct {
	OK         bool              `json:"ok"`
	Deployment domain.Deployment `json:"deployment"`
	Flags      int64             `json:"flags"`
}
