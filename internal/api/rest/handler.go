package rest

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/supp-dex/instance-api/internal/api/apierrors"
	"github.com/supp-dex/instance-api/internal/api/middleware"
	"github.com/supp-dex/instance-api/internal/chain"
	"github.com/supp-dex/instance-api/internal/domain"
	"github.com/supp-dex/instance-api/internal/logger"
	"github.com/supp-dex/instance-api/internal/session"
	"github.com/supp-dex/instance-api/internal/store"
	"github.com/supp-dex/instance-api/internal/store/schema"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// EnsureSession confirms the visitor has a session, minting one if needed
	// POST /session
	EnsureSession(c *gin.Context)

	// CreateWallet provisions and funds the session wallet (at most once)
	// POST /wallet
	CreateWallet(c *gin.Context)

	// GetWallet returns the session's wallet, or null if none exists
	// GET /wallet
	GetWallet(c *gin.Context)

	// GetFlag returns one flag by id
	// GET /flags/:id and GET /flags/peek/:id
	GetFlag(c *gin.Context)

	// PutFlags upserts one flag or an atomic batch
	// POST /flags
	PutFlags(c *gin.Context)

	// DeleteFlag removes one flag by id
	// DELETE /flags/:id
	DeleteFlag(c *gin.Context)

	// GetFlagCount returns the number of stored flags
	// GET /flags/count
	GetFlagCount(c *gin.Context)

	// IsSolved reads the on-chain solve predicate and discloses all flags when
	// it holds
	// GET /isSolved
	IsSolved(c *gin.Context)

	// GetDeployment returns the deployment addresses and proxy balance
	// GET /deployment
	GetDeployment(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /_health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store       store.Store
	chain       chain.Client
	provisioner *session.Provisioner
	deployment  domain.Deployment
	funder      domain.Funder
}

// NewHandler creates a new REST API handler
func NewHandler(st store.Store, chainClient chain.Client, provisioner *session.Provisioner, deployment domain.Deployment, funder domain.Funder) Handler {
	return &handler{
		store:       st,
		chain:       chainClient,
		provisioner: provisioner,
		deployment:  deployment,
		funder:      funder,
	}
}

// EnsureSession confirms the visitor has a session
func (h *handler) EnsureSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionResponse{OK: true, SID: middleware.SessionID(c)})
}

// CreateWallet provisions and funds the session wallet
func (h *handler) CreateWallet(c *gin.Context) {
	sid := middleware.SessionID(c)
	state := middleware.SessionState(c)
	if state == nil {
		respondInternalError(c, errors.New("no session on request"), "Session missing")
		return
	}

	wallet, err := h.provisioner.EnsureWallet(c.Request.Context(), state)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProvisioningInProgress):
			respondWithError(c, http.StatusServiceUnavailable, apierrors.ErrCodeRetryLater,
				"Wallet provisioning in progress, retry shortly")
		case errors.Is(err, domain.ErrConfirmationTimeout):
			logger.Error(err, zap.String("sid", sid))
			respondWithError(c, http.StatusGatewayTimeout, apierrors.ErrCodeUpstreamTimeout,
				"Funding confirmation timed out")
		default:
			respondUpstreamError(c, err, "Failed to fund session wallet", zap.String("sid", sid))
		}
		return
	}

	c.JSON(http.StatusOK, createWalletResponse{
		OK:         true,
		SID:        sid,
		Wallet:     wallet,
		Funder:     h.funder,
		Deployment: newPublicDeployment(h.deployment),
	})
}

// GetWallet returns the session's wallet, or null if none exists
func (h *handler) GetWallet(c *gin.Context) {
	state := middleware.SessionState(c)
	if state == nil {
		respondInternalError(c, errors.New("no session on request"), "Session missing")
		return
	}

	c.JSON(http.StatusOK, getWalletResponse{
		OK:          true,
		SID:         middleware.SessionID(c),
		SessionInfo: state.Info(),
		Deployment:  h.deployment,
	})
}

// GetFlag returns one flag by id
func (h *handler) GetFlag(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "Flag id is required")
		return
	}

	flag, found, err := h.store.GetFlag(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to get flag")
		return
	}
	if !found {
		respondNotFound(c, "Flag not found")
		return
	}

	c.JSON(http.StatusOK, flagResponse{OK: true, ID: id, Flag: flag})
}

// PutFlags upserts one flag or an atomic batch
func (h *handler) PutFlags(c *gin.Context) {
	var req putFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid body", err.Error())
		return
	}

	switch {
	case req.ID != "" && req.Flag != "":
		if err := h.store.PutFlag(c.Request.Context(), req.ID, req.Flag); err != nil {
			respondInternalError(c, err, "Failed to store flag")
			return
		}
	case len(req.Flags) > 0:
		batch, err := parseFlagBatch(req.Flags)
		if err != nil {
			respondBadRequest(c, "Invalid body", err.Error())
			return
		}
		if err := h.store.PutFlags(c.Request.Context(), batch); err != nil {
			respondInternalError(c, err, "Failed to store flag batch")
			return
		}
	default:
		respondBadRequest(c, "Invalid body", "expected {id, flag} or {flags}")
		return
	}

	count, err := h.store.CountFlags(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to count flags")
		return
	}
	c.JSON(http.StatusOK, flagCountResponse{OK: true, Count: count})
}

// DeleteFlag removes one flag by id
func (h *handler) DeleteFlag(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "Flag id is required")
		return
	}

	deleted, err := h.store.DeleteFlag(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "Failed to delete flag")
		return
	}
	if !deleted {
		respondNotFound(c, "Flag not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": true})
}

// GetFlagCount returns the number of stored flags
func (h *handler) GetFlagCount(c *gin.Context) {
	count, err := h.store.CountFlags(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to count flags")
		return
	}
	c.JSON(http.StatusOK, flagCountResponse{OK: true, Count: count})
}

// IsSolved reads the on-chain solve predicate and discloses all flags when it
// holds. The predicate is read per request, never cached.
func (h *handler) IsSolved(c *gin.Context) {
	solved, err := h.chain.IsSolved(c.Request.Context(), h.deployment.Setup)
	if err != nil {
		respondUpstreamError(c, err, "Failed to read solve state")
		return
	}

	if !solved {
		c.JSON(http.StatusOK, isSolvedResponse{OK: true, Solved: false})
		return
	}

	records, err := h.store.ListFlags(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to list flags")
		return
	}

	flags := make([]domain.Flag, 0, len(records))
	for _, r := range records {
		flags = append(flags, domain.Flag{ID: r.ID, Flag: r.Flag})
	}

	c.JSON(http.StatusOK, isSolvedResponse{OK: true, Solved: true, Flags: flags})
}

// GetDeployment returns the deployment addresses and proxy balance
func (h *handler) GetDeployment(c *gin.Context) {
	balance, err := h.chain.Balance(c.Request.Context(), h.deployment.Proxy)
	if err != nil {
		respondUpstreamError(c, err, "Failed to read proxy balance")
		return
	}

	c.JSON(http.StatusOK, deploymentResponse{
		OK:              true,
		Deployment:      h.deployment,
		ProxyBalanceETH: formatEther(balance),
	})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	count, err := h.store.CountFlags(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to count flags")
		return
	}
	c.JSON(http.StatusOK, healthResponse{OK: true, Deployment: h.deployment, Flags: count})
}

// parseFlagBatch accepts either an object of id->flag or an array of
// {id, flag} entries
func parseFlagBatch(raw json.RawMessage) ([]schema.Flag, error) {
	var entries []domain.Flag
	if err := json.Unmarshal(raw, &entries); err == nil {
		batch := make([]schema.Flag, 0, len(entries))
		for _, e := range entries {
			if e.ID == "" {
				return nil, errors.New("flag entry missing id")
			}
			batch = append(batch, schema.Flag{ID: e.ID, Flag: e.Flag})
		}
		return batch, nil
	}

	var mapping map[string]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, errors.New("flags must be an object of id->flag or an array of {id, flag}")
	}

	batch := make([]schema.Flag, 0, len(mapping))
	for id, flag := range mapping {
		batch = append(batch, schema.Flag{ID: id, Flag: flag})
	}
	return batch, nil
}

// formatEther renders a wei amount as a decimal ether string
func formatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether)).FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
