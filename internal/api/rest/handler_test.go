package rest_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supp-dex/instance-api/internal/adapter"
	"github.com/supp-dex/instance-api/internal/api/middleware"
	"github.com/supp-dex/instance-api/internal/api/rest"
	"github.com/supp-dex/instance-api/internal/domain"
	"github.com/supp-dex/instance-api/internal/mocks"
	"github.com/supp-dex/instance-api/internal/ratelimit"
	"github.com/supp-dex/instance-api/internal/session"
	"github.com/supp-dex/instance-api/internal/store/schema"
)

type testEnv struct {
	router    *gin.Engine
	store     *mocks.MockStore
	chain     *mocks.MockChainClient
	bearer    string
	deployed  domain.Deployment
	funderKey string
}

func newTestEnv(t *testing.T, ctrl *gomock.Controller) *testEnv {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Issuer:    "checker",
		Audience:  jwt.ClaimStrings{"supp-dex"},
		Subject:   "checker-bot",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(priv)
	require.NoError(t, err)

	deployed := domain.Deployment{
		Deployer: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Setup:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Proxy:    common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Rescue:   common.HexToAddress("0x4444444444444444444444444444444444444444"),
	}

	mockStore := mocks.NewMockStore(ctrl)
	mockChain := mocks.NewMockChainClient(ctrl)

	clock := adapter.NewClock()
	mgr := session.NewManager(session.NewMemoryStore(64, time.Hour), clock)
	provisioner := session.NewProvisioner(mockChain, big.NewInt(1e18))
	limiter := ratelimit.NewFixedWindow(ratelimit.Config{Max: 100, Window: time.Minute, MaxKeys: 64}, clock)

	funder := domain.Funder{
		Address:    deployed.Deployer,
		PrivateKey: "0xfunderkey",
	}
	handler := rest.NewHandler(mockStore, mockChain, provisioner, deployed, funder)

	router := gin.New()
	rest.SetupRoutes(router, handler, rest.Middlewares{
		Session:   middleware.Session(mgr),
		RateLimit: middleware.RateLimit(limiter),
		Auth:      middleware.Auth(middleware.AuthConfig{VerifyKey: pub, Issuer: "checker", Audience: "supp-dex"}),
	}, "")

	return &testEnv{
		router:    router,
		store:     mockStore,
		chain:     mockChain,
		bearer:    "Bearer " + token,
		deployed:  deployed,
		funderKey: funder.PrivateKey,
	}
}

func (e *testEnv) do(method, path, body string, authorized bool) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authorized {
		req.Header.Set("Authorization", e.bearer)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().CountFlags(gomock.Any()).Return(int64(2), nil)

	w := env.do(http.MethodGet, "/_health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
	assert.Contains(t, w.Body.String(), `"flags":2`)
}

func TestEnsureSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	w := env.do(http.MethodPost, "/session", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sid":"`)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "sid=")
}

func TestCreateWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.chain.EXPECT().Fund(gomock.Any(), gomock.Any(), big.NewInt(1e18)).Return(common.HexToHash("0x01"), nil)

	w := env.do(http.MethodPost, "/wallet", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `"wallet":{"address":"0x`)
	assert.Contains(t, body, `"privateKey":"0x`)
	assert.Contains(t, body, env.funderKey)
	// Players get the contract addresses but not the deployer address
	assert.Contains(t, body, env.deployed.Setup.Hex())
	assert.Contains(t, body, env.deployed.Proxy.Hex())
	assert.NotContains(t, body, `"deployer"`)
}

func TestCreateWallet_ConfirmationTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.chain.
		EXPECT().
		Fund(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(common.HexToHash("0x01"), fmt.Errorf("no receipt: %w", domain.ErrConfirmationTimeout))

	w := env.do(http.MethodPost, "/wallet", "", false)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_timeout")
}

func TestCreateWallet_FundingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.chain.EXPECT().Fund(gomock.Any(), gomock.Any(), gomock.Any()).Return(common.Hash{}, assert.AnError)

	w := env.do(http.MethodPost, "/wallet", "", false)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_error")
}

func TestGetWallet_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	w := env.do(http.MethodGet, "/wallet", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"wallet":null`)
	assert.Contains(t, w.Body.String(), `"createdAt":`)
	// The full deployment, deployer included, is visible here
	assert.Contains(t, w.Body.String(), env.deployed.Deployer.Hex())
}

func TestFlags_RequireAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/flags/count"},
		{http.MethodGet, "/flags/some-id"},
		{http.MethodGet, "/flags/peek/some-id"},
		{http.MethodPost, "/flags"},
		{http.MethodDelete, "/flags/some-id"},
	} {
		w := env.do(route.method, route.path, "", false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s must require a token", route.method, route.path)
	}
}

func TestGetFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().GetFlag(gomock.Any(), "stage-1").Return("FLAG{first}", true, nil)

	w := env.do(http.MethodGet, "/flags/stage-1", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "FLAG{first}")
}

func TestGetFlag_PeekAlias(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().GetFlag(gomock.Any(), "stage-1").Return("FLAG{first}", true, nil)

	w := env.do(http.MethodGet, "/flags/peek/stage-1", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "FLAG{first}")
}

func TestGetFlag_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().GetFlag(gomock.Any(), "missing").Return("", false, nil)

	w := env.do(http.MethodGet, "/flags/missing", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestGetFlag_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().GetFlag(gomock.Any(), "stage-1").Return("", false, assert.AnError)

	w := env.do(http.MethodGet, "/flags/stage-1", "", true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// The caller never sees the underlying error
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestPutFlags_Single(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().PutFlag(gomock.Any(), "stage-1", "FLAG{first}").Return(nil)
	env.store.EXPECT().CountFlags(gomock.Any()).Return(int64(1), nil)

	w := env.do(http.MethodPost, "/flags", `{"id":"stage-1","flag":"FLAG{first}"}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestPutFlags_BatchArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.
		EXPECT().
		PutFlags(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, flags []schema.Flag) error {
			require.Len(t, flags, 2)
			assert.Equal(t, "stage-1", flags[0].ID)
			assert.Equal(t, "FLAG{first}", flags[0].Flag)
			assert.Equal(t, "stage-2", flags[1].ID)
			return nil
		})
	env.store.EXPECT().CountFlags(gomock.Any()).Return(int64(2), nil)

	body := `{"flags":[{"id":"stage-1","flag":"FLAG{first}"},{"id":"stage-2","flag":"FLAG{second}"}]}`
	w := env.do(http.MethodPost, "/flags", body, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestPutFlags_BatchMap(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.
		EXPECT().
		PutFlags(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, flags []schema.Flag) error {
			byID := make(map[string]string, len(flags))
			for _, f := range flags {
				byID[f.ID] = f.Flag
			}
			assert.Equal(t, map[string]string{"a": "FLAG{a}", "b": "FLAG{b}"}, byID)
			return nil
		})
	env.store.EXPECT().CountFlags(gomock.Any()).Return(int64(2), nil)

	w := env.do(http.MethodPost, "/flags", `{"flags":{"a":"FLAG{a}","b":"FLAG{b}"}}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPutFlags_Invalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"id without flag", `{"id":"stage-1"}`},
		{"batch entry missing id", `{"flags":[{"flag":"FLAG{orphan}"}]}`},
		{"flags not object or array", `{"flags":42}`},
		{"not json", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/flags", tt.body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestDeleteFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().DeleteFlag(gomock.Any(), "stage-1").Return(true, nil)

	w := env.do(http.MethodDelete, "/flags/stage-1", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":true`)
}

func TestDeleteFlag_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().DeleteFlag(gomock.Any(), "missing").Return(false, nil)

	w := env.do(http.MethodDelete, "/flags/missing", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFlagCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.store.EXPECT().CountFlags(gomock.Any()).Return(int64(5), nil)

	w := env.do(http.MethodGet, "/flags/count", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":5`)
}

func TestIsSolved_NotSolved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.chain.EXPECT().IsSolved(gomock.Any(), env.deployed.Setup).Return(false, nil)

	w := env.do(http.MethodGet, "/isSolved", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"solved":false`)
	assert.NotContains(t, w.Body.String(), `"flags"`)
}

func TestIsSolved_DisclosesFlags(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.chain.EXPECT().IsSolved(gomock.Any(), env.deployed.Setup).Return(true, nil)
	env.store.EXPECT().ListFlags(gomock.Any()).Return([]schema.Flag{
		{ID: "stage-1", Flag: "FLAG{first}"},
		{ID: "stage-2", Flag: "FLAG{second}"},
	}, nil)

	// No bearer token: solving the challenge is the only gate
	w := env.do(http.MethodGet, "/isSolved", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"solved":true`)
	assert.Contains(t, w.Body.String(), "FLAG{first}")
	assert.Contains(t, w.Body.String(), "FLAG{second}")
}

func TestIsSolved_ChainError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	env.chain.EXPECT().IsSolved(gomock.Any(), env.deployed.Setup).Return(false, assert.AnError)

	w := env.do(http.MethodGet, "/isSolved", "", false)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetDeployment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	env := newTestEnv(t, ctrl)

	balance, _ := new(big.Int).SetString("1500000000000000000", 10)
	env.chain.EXPECT().Balance(gomock.Any(), env.deployed.Proxy).Return(balance, nil)

	w := env.do(http.MethodGet, "/deployment", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"proxyBalanceETH":"1.5"`)
	assert.Contains(t, w.Body.String(), env.deployed.Proxy.Hex())
}
