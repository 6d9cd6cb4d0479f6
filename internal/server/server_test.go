package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	calcrundomain "github.com/railzwaylabs/landedcost/internal/calcrun/domain"
	calcrunrepository "github.com/railzwaylabs/landedcost/internal/calcrun/repository"
	calcrunservice "github.com/railzwaylabs/landedcost/internal/calcrun/service"
	"github.com/railzwaylabs/landedcost/internal/clock"
	"github.com/railzwaylabs/landedcost/internal/config"
	"github.com/railzwaylabs/landedcost/internal/landedcost/landedcosttest"
	"github.com/railzwaylabs/landedcost/internal/observability"
	"github.com/railzwaylabs/landedcost/internal/ratehunter"
	ratelimitservice "github.com/railzwaylabs/landedcost/internal/ratelimit/service"
	"github.com/railzwaylabs/landedcost/internal/reference/referencetest"
	referenceservice "github.com/railzwaylabs/landedcost/internal/reference/service"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testOptions struct {
	now       time.Time
	rateLimit int
}

func newTestServer(t *testing.T, opts testOptions) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	db := referencetest.OpenDB(t, &calcrundomain.CalcRun{})
	fixture := referencetest.Seed(t, db)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	now := opts.now
	if now.IsZero() {
		now = landedcosttest.Now
	}
	runs := calcrunservice.NewService(calcrunservice.Params{
		Log:   log,
		Repo:  calcrunrepository.NewRepository(db),
		GenID: node,
		Clock: clock.Fixed{At: now},
	})
	env := landedcosttest.Wire(db, fixture, landedcosttest.Options{Now: now, Recorder: runs})

	cfg := env.Config
	params := ServerParams{
		Log:        log,
		Config:     cfg,
		DB:         db,
		Calculator: env.Service,
		Hunter: ratehunter.NewService(ratehunter.Params{
			Log:        log,
			Config:     cfg,
			Calculator: env.Service,
			Repo:       env.Repo,
		}),
		Reference: referenceservice.NewService(referenceservice.Params{Log: log, Repo: env.Repo}),
		Runs:      runs,
		Metrics:   observability.NewMetrics(),
	}

	if opts.rateLimit > 0 {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		limitCfg := config.Default()
		limitCfg.RateLimit.Enabled = true
		limitCfg.RateLimit.RequestsPerMinute = opts.rateLimit
		params.Limiter = ratelimitservice.NewService(ratelimitservice.ServiceParam{
			Redis:  rdb,
			Log:    log,
			Config: limitCfg,
			Clock:  clock.Fixed{At: now},
		})
	}

	return NewServer(params)
}

func do(t *testing.T, s *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Reader
	switch b := body.(type) {
	case nil:
		payload = bytes.NewReader(nil)
	case string:
		payload = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func laptopInput(origin string) map[string]any {
	return map[string]any{
		"hs_code":        referencetest.HSLaptop,
		"customs_value":  "10000",
		"origin_country": origin,
	}
}

func TestCalculateEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})

	resp := do(t, s, http.MethodPost, "/api/calculate", laptopInput("CN"), nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))

	var body struct {
		Data struct {
			LandedCostTotal decimal.Decimal `json:"landed_cost_total"`
			Verdict         string          `json:"verdict"`
			Breakdown       []any           `json:"breakdown"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "11650.00", body.Data.LandedCostTotal.StringFixed(2))
	assert.Equal(t, "UNKNOWN", body.Data.Verdict)
	assert.NotEmpty(t, body.Data.Breakdown)
}

func TestCalculateErrorMapping(t *testing.T) {
	s := newTestServer(t, testOptions{})

	t.Run("malformed body", func(t *testing.T) {
		resp := do(t, s, http.MethodPost, "/api/calculate", "{", nil)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, errorTypeInvalidRequest, decodeError(t, resp).Type)
	})

	t.Run("validation error carries field", func(t *testing.T) {
		resp := do(t, s, http.MethodPost, "/api/calculate", map[string]any{
			"customs_value":  "100",
			"origin_country": "CN",
		}, nil)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		e := decodeError(t, resp)
		assert.Equal(t, "hs_code", e.Field)
		assert.Equal(t, "required", e.Code)
	})

	t.Run("unknown hs code", func(t *testing.T) {
		in := laptopInput("CN")
		in["hs_code"] = "999999"
		resp := do(t, s, http.MethodPost, "/api/calculate", in, nil)
		require.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "classification_not_found", decodeError(t, resp).Code)
	})

	t.Run("missing rate", func(t *testing.T) {
		in := laptopInput("CN")
		in["hs_code"] = referencetest.HSNoRate
		resp := do(t, s, http.MethodPost, "/api/calculate", in, nil)
		require.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "tariff_rate_not_found", decodeError(t, resp).Code)
	})
}

func TestCalculateWithoutActiveTariff(t *testing.T) {
	s := newTestServer(t, testOptions{now: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)})

	resp := do(t, s, http.MethodPost, "/api/calculate", laptopInput("CN"), nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "no_active_tariff", decodeError(t, resp).Code)
}

func TestCompareEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})

	bad := laptopInput("CN")
	bad["origin_country"] = "China"
	resp := do(t, s, http.MethodPost, "/api/compare", map[string]any{
		"scenarios": []any{laptopInput("CN"), bad},
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Data []struct {
			Index  int `json:"index"`
			Output *struct {
				OriginCountry string `json:"origin_country"`
			} `json:"output"`
			Error *struct {
				Code  string `json:"code"`
				Field string `json:"field"`
			} `json:"error"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.NotNil(t, body.Data[0].Output)
	assert.Equal(t, "CN", body.Data[0].Output.OriginCountry)
	require.NotNil(t, body.Data[1].Error)
	assert.Equal(t, "origin_country", body.Data[1].Error.Field)

	resp = do(t, s, http.MethodPost, "/api/compare", map[string]any{"scenarios": []any{}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRateHunterEndpoint(t *testing.T) {
	s := newTestServer(t, testOptions{})

	in := map[string]any{
		"hs_code":        referencetest.HSTShirt,
		"customs_value":  "100000",
		"origin_country": "CN",
	}
	resp := do(t, s, http.MethodPost, "/api/rate-hunter", map[string]any{"input": in}, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Data struct {
			BaseOrigin      string `json:"base_origin"`
			BestAlternative *struct {
				OriginCountry string `json:"origin_country"`
			} `json:"best_alternative"`
			Alternatives []any `json:"alternatives"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "CN", body.Data.BaseOrigin)
	assert.NotEmpty(t, body.Data.Alternatives)
	require.NotNil(t, body.Data.BestAlternative)
	assert.Equal(t, "MU", body.Data.BestAlternative.OriginCountry)

	base := map[string]any{"origin_country": "CN", "landed_cost_total": "20000"}
	resp = do(t, s, http.MethodPost, "/api/rate-hunter", map[string]any{"input": map[string]any{}, "base": base}, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	e := decodeError(t, resp)
	assert.Equal(t, errorTypeInvalidRequest, e.Type)
	assert.Equal(t, "hs_code", e.Field)
}

func TestReferenceEndpoints(t *testing.T) {
	s := newTestServer(t, testOptions{})

	resp := do(t, s, http.MethodGet, "/api/hscodes?prefix=85", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var codes struct {
		Data []struct {
			HS6 string `json:"hs6"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &codes))
	require.NotEmpty(t, codes.Data)
	for _, c := range codes.Data {
		assert.Equal(t, "85", c.HS6[:2])
	}

	resp = do(t, s, http.MethodGet, "/api/hscodes?prefix=ab", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "prefix", decodeError(t, resp).Field)

	resp = do(t, s, http.MethodGet, "/api/hscodes/8471.30", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, s, http.MethodGet, "/api/hscodes/999999", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	for _, path := range []string{"/api/clusters", "/api/countries", "/api/tariff-versions"} {
		resp = do(t, s, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestRunEndpoints(t *testing.T) {
	s := newTestServer(t, testOptions{})
	user := map[string]string{userIDHeader: "user-1"}

	resp := do(t, s, http.MethodPost, "/api/calculate", laptopInput("CN"), user)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, s, http.MethodGet, "/api/runs", nil, user)
	require.Equal(t, http.StatusOK, resp.Code)
	var runs struct {
		Data []struct {
			ID  string `json:"id"`
			HS6 string `json:"hs6"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &runs))
	require.Len(t, runs.Data, 1)
	assert.Equal(t, referencetest.HSLaptop, runs.Data[0].HS6)

	resp = do(t, s, http.MethodGet, "/api/runs/"+runs.Data[0].ID, nil, user)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, s, http.MethodGet, "/api/runs/"+runs.Data[0].ID, nil, map[string]string{userIDHeader: "user-2"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, s, http.MethodGet, "/api/runs", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, userIDHeader, decodeError(t, resp).Field)

	resp = do(t, s, http.MethodGet, "/api/runs/not-a-number", nil, user)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, testOptions{rateLimit: 2})
	user := map[string]string{userIDHeader: "user-1"}

	for i := 0; i < 2; i++ {
		resp := do(t, s, http.MethodPost, "/api/calculate", laptopInput("CN"), user)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := do(t, s, http.MethodPost, "/api/calculate", laptopInput("CN"), user)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "rate_limited", decodeError(t, resp).Code)
	assert.Equal(t, "0", resp.Header().Get("X-RateLimit-Remaining"))

	// Browse endpoints are not budgeted.
	resp = do(t, s, http.MethodGet, "/api/countries", nil, user)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, testOptions{})

	resp := do(t, s, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)

	resp = do(t, s, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "landedcost_http_requests_total")
}

func TestDescribeUnknownError(t *testing.T) {
	status, body := describe(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", body.Code)
}
