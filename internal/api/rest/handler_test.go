package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/api/middleware"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/api/rest"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/core"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/logger"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/mocks"
)

const testAPIKey = "test-api-key"

var (
	gaugeAddr = "0x00000000000000000000000000000000000000A1"
	userAddr  = "0x0000000000000000000000000000000000000a11"
	otherAddr = "0x0000000000000000000000000000000000000B0b"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)

	code := m.Run()
	os.Exit(code)
}

// testClock moves the guild's wall clock between requests.
type testClock struct {
	now time.Time
}

func setupRouter(t *testing.T, ctrl *gomock.Controller) (*gin.Engine, *core.Guild, *testClock) {
	t.Helper()

	// Mid-cycle instant, outside the freeze window.
	tc := &testClock{now: time.Unix(1000*3600, 0).UTC().Add(10 * time.Minute)}
	clk := mocks.NewMockClock(ctrl)
	clk.EXPECT().Now().DoAndReturn(func() time.Time { return tc.now }).AnyTimes()

	guild, err := core.New(core.Config{
		CycleLength:  time.Hour,
		FreezeWindow: 10 * time.Minute,
	}, clk)
	require.NoError(t, err)

	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(guild), middleware.AuthConfig{
		APIKeys: []string{testAPIKey},
	})
	return router, guild, tc
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "ApiKey "+testAPIKey)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, w, &body)
	return body.Error.Code
}

func TestHealthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router, _, _ := setupRouter(t, ctrl)

	w := doRequest(t, router, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decodeBody(t, w, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestGaugeEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router, _, _ := setupRouter(t, ctrl)

	t.Run("registration requires auth", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/gauges",
			gin.H{"address": gaugeAddr, "gauge_type": "term"}, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("registers a gauge", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/gauges",
			gin.H{"address": gaugeAddr, "gauge_type": "term"}, true)
		require.Equal(t, http.StatusCreated, w.Code)

		var body rest.GaugeResponse
		decodeBody(t, w, &body)
		assert.Equal(t, common.HexToAddress(gaugeAddr).Hex(), body.Address)
		assert.Equal(t, "term", body.GaugeType)
		assert.Equal(t, "active", body.Status)
	})

	t.Run("rejects a malformed address", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/gauges",
			gin.H{"address": "not-an-address", "gauge_type": "term"}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_failed", errorCode(t, w))
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/gauges",
			gin.H{"address": gaugeAddr, "gauge_type": "term"}, true)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "invalid_gauge", errorCode(t, w))
	})

	t.Run("lists gauges", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/gauges", nil, false)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Gauges []rest.GaugeResponse `json:"gauges"`
		}
		decodeBody(t, w, &body)
		require.Len(t, body.Gauges, 1)
	})

	t.Run("fetches one gauge", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/gauges/"+gaugeAddr, nil, false)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown gauge is not found", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/gauges/"+otherAddr, nil, false)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", errorCode(t, w))
	})

	t.Run("removal deprecates the gauge", func(t *testing.T) {
		w := doRequest(t, router, http.MethodDelete, "/api/v1/gauges/"+gaugeAddr, nil, true)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.GaugeResponse
		decodeBody(t, w, &body)
		assert.Equal(t, "deprecated", body.Status)
	})
}

func TestWeightEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router, guild, _ := setupRouter(t, ctrl)

	_, err := guild.AddGauge("term", common.HexToAddress(gaugeAddr))
	require.NoError(t, err)
	require.NoError(t, guild.Mint(common.HexToAddress(userAddr), 100))

	t.Run("increments weights", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/users/"+userAddr+"/weights/increment",
			gin.H{"gauges": []string{gaugeAddr}, "amounts": []uint64{60}}, false)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.WeightChangeResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(60), body.TotalWeight)
	})

	t.Run("overweight conflicts", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/users/"+userAddr+"/weights/increment",
			gin.H{"gauges": []string{gaugeAddr}, "amounts": []uint64{41}}, false)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "overweight", errorCode(t, w))
	})

	t.Run("mismatched batch is a bad request", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/users/"+userAddr+"/weights/increment",
			gin.H{"gauges": []string{gaugeAddr}, "amounts": []uint64{1, 2}}, false)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "size_mismatch", errorCode(t, w))
	})

	t.Run("reads user weights", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/api/v1/users/"+userAddr+"/weights", nil, false)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.UserWeightsResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(60), body.TotalWeight)
		assert.Equal(t, uint64(100), body.Balance)
		require.Len(t, body.Weights, 1)
		assert.Equal(t, uint64(60), body.Weights[0].Weight)
	})

	t.Run("decrements weights", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/users/"+userAddr+"/weights/decrement",
			gin.H{"gauges": []string{gaugeAddr}, "amounts": []uint64{20}}, false)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.WeightChangeResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(40), body.TotalWeight)
	})
}

func TestAllocationEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router, guild, _ := setupRouter(t, ctrl)

	_, err := guild.AddGauge("term", common.HexToAddress(gaugeAddr))
	require.NoError(t, err)
	require.NoError(t, guild.Mint(common.HexToAddress(userAddr), 100))
	_, err = guild.IncrementWeight(common.HexToAddress(userAddr), common.HexToAddress(gaugeAddr), 100)
	require.NoError(t, err)

	t.Run("splits live weight", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet,
			"/api/v1/allocations?gauge="+gaugeAddr+"&total=1000", nil, false)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.AllocationResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(1000), body.Allocation)
		assert.False(t, body.Stored)
	})

	t.Run("stored split lags the live one", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet,
			"/api/v1/allocations?gauge="+gaugeAddr+"&total=1000&stored=true", nil, false)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.AllocationResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(0), body.Allocation)
		assert.True(t, body.Stored)
	})

	t.Run("rejects a missing total", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet,
			"/api/v1/allocations?gauge="+gaugeAddr, nil, false)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLossEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router, guild, tc := setupRouter(t, ctrl)

	_, err := guild.AddGauge("term", common.HexToAddress(gaugeAddr))
	require.NoError(t, err)
	require.NoError(t, guild.Mint(common.HexToAddress(userAddr), 100))
	_, err = guild.IncrementWeight(common.HexToAddress(userAddr), common.HexToAddress(gaugeAddr), 40)
	require.NoError(t, err)
	tc.now = tc.now.Add(time.Minute)

	t.Run("reporting requires auth", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/gauges/"+gaugeAddr+"/loss", nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("reports a loss", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/gauges/"+gaugeAddr+"/loss", nil, true)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("applies the loss to a staked user", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/gauges/"+gaugeAddr+"/loss/apply",
			gin.H{"user": userAddr}, false)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.ApplyLossResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(40), body.Slashed)
		assert.Equal(t, uint64(60), guild.BalanceOf(common.HexToAddress(userAddr)))
	})

	t.Run("second application conflicts", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/gauges/"+gaugeAddr+"/loss/apply",
			gin.H{"user": userAddr}, false)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "no_loss_to_apply", errorCode(t, w))
	})
}

func TestBalanceEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router, _, _ := setupRouter(t, ctrl)

	t.Run("mint requires auth", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/balances/mint",
			gin.H{"to": userAddr, "amount": 100}, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("mints balance", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/balances/mint",
			gin.H{"to": userAddr, "amount": 100}, true)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.BalanceResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(100), body.Balance)
	})

	t.Run("transfers balance", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/balances/transfer",
			gin.H{"from": userAddr, "to": otherAddr, "amount": 30}, false)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.BalanceResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(70), body.Balance)
	})

	t.Run("insufficient balance conflicts", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/balances/transfer",
			gin.H{"from": userAddr, "to": otherAddr, "amount": 71}, false)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "insufficient_balance", errorCode(t, w))
	})

	t.Run("allowance-backed transfer", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/balances/approve",
			gin.H{"owner": userAddr, "spender": otherAddr, "amount": 25}, false)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, router, http.MethodPost, "/api/v1/balances/transfer",
			gin.H{"from": userAddr, "to": otherAddr, "amount": 25, "spender": otherAddr}, false)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, router, http.MethodGet, "/api/v1/balances/"+otherAddr, nil, false)
		require.Equal(t, http.StatusOK, w.Code)
		var body rest.BalanceResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(55), body.Balance)
	})

	t.Run("burns balance", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/balances/burn",
			gin.H{"from": userAddr, "amount": 45}, true)
		require.Equal(t, http.StatusOK, w.Code)

		var body rest.BalanceResponse
		decodeBody(t, w, &body)
		assert.Equal(t, uint64(0), body.Balance)
	})
}

func TestMaxGaugesEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	router, _, _ := setupRouter(t, ctrl)

	w := doRequest(t, router, http.MethodGet, "/api/v1/config/max-gauges", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	var body rest.MaxGaugesResponse
	decodeBody(t, w, &body)
	assert.Equal(t, 0, body.MaxGauges)

	w = doRequest(t, router, http.MethodPut, "/api/v1/config/max-gauges",
		gin.H{"max_gauges": 5}, true)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &body)
	assert.Equal(t, 5, body.MaxGauges)
}
