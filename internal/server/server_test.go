package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/config"
	"github.com/smallbiznis/cueledger/internal/ratelimit"
	sessiondomain "github.com/smallbiznis/cueledger/internal/session/domain"
	tabledomain "github.com/smallbiznis/cueledger/internal/table/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type fakeSessionService struct {
	sessiondomain.Service
	closeReq sessiondomain.CloseRequest
	closeErr error
}

func (f *fakeSessionService) Close(_ context.Context, req sessiondomain.CloseRequest) (sessiondomain.Settlement, error) {
	f.closeReq = req
	if f.closeErr != nil {
		return sessiondomain.Settlement{}, f.closeErr
	}
	return sessiondomain.Settlement{
		SessionID:     req.SessionID,
		TotalAmount:   50000,
		CashbackUsed:  req.CashbackAmount,
		PaidAmount:    req.PaidAmount,
		PayableAmount: 50000 - req.CashbackAmount,
		DebtAmount:    50000 - req.CashbackAmount - req.PaidAmount,
		PaymentType:   req.PaymentType,
	}, nil
}

type fakeTableService struct {
	tabledomain.Service
	listActor actor.Actor
}

func (f *fakeTableService) List(_ context.Context, act actor.Actor) ([]tabledomain.TableView, error) {
	f.listActor = act
	if err := act.Validate(); err != nil {
		return nil, err
	}
	return []tabledomain.TableView{}, nil
}

func (f *fakeTableService) Get(context.Context, actor.Actor, snowflake.ID) (tabledomain.TableView, error) {
	return tabledomain.TableView{}, tabledomain.ErrNotFound
}

func newTestServer(t *testing.T, cfg config.Config, p ServerParams) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	p.Gin = r
	p.Cfg = cfg
	p.Log = zap.NewNop()
	return NewServer(p)
}

func signToken(t *testing.T, claims actorClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doRequest(s *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestMapErrorByKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{sessiondomain.ErrPaymentExceedsTotal, http.StatusBadRequest, "validation_error"},
		{apperr.ErrUnidentifiedActor, http.StatusUnauthorized, "unauthorized"},
		{sessiondomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{sessiondomain.ErrTableOccupied, http.StatusConflict, "precondition_failed"},
		{ratelimit.ErrCustomerBusy, http.StatusConflict, "conflict"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{invalidRequestError(), http.StatusBadRequest, "validation_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.typ, payload.Type, tc.err.Error())
	}
}

func TestMapErrorHidesInternalCause(t *testing.T) {
	status, payload := mapError(apperr.Internal(errors.New(`pq: duplicate key "0812"`)))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Code)
	assert.NotContains(t, payload.Message, "0812")
}

func TestActorFromBearerToken(t *testing.T) {
	tables := &fakeTableService{}
	s := newTestServer(t, config.Config{AuthJWTSecret: testSecret}, ServerParams{TableSvc: tables})

	token := signToken(t, actorClaims{
		AccountID:  "1001",
		OperatorID: "2002",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	rec := doRequest(s, http.MethodGet, "/api/tables", nil, map[string]string{"Authorization": "Bearer " + token})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1001, tables.listActor.AccountID)
	assert.EqualValues(t, 2002, tables.listActor.OperatorID)
}

func TestActorRejectsBadTokens(t *testing.T) {
	s := newTestServer(t, config.Config{AuthJWTSecret: testSecret}, ServerParams{TableSvc: &fakeTableService{}})

	expired := signToken(t, actorClaims{
		AccountID: "1001",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	noAccount := signToken(t, actorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	for _, header := range []string{"", "Bearer " + expired, "Bearer " + noAccount, "Bearer not-a-token"} {
		rec := doRequest(s, http.MethodGet, "/api/tables", nil, map[string]string{"Authorization": header})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestActorHeadersOnlyOutsideProduction(t *testing.T) {
	headers := map[string]string{HeaderAccountID: "1001"}

	dev := newTestServer(t, config.Config{Environment: "development"}, ServerParams{TableSvc: &fakeTableService{}})
	assert.Equal(t, http.StatusOK, doRequest(dev, http.MethodGet, "/api/tables", nil, headers).Code)

	prod := newTestServer(t, config.Config{Environment: "production"}, ServerParams{TableSvc: &fakeTableService{}})
	assert.Equal(t, http.StatusUnauthorized, doRequest(prod, http.MethodGet, "/api/tables", nil, headers).Code)
}

func TestCloseSessionPassesSettlementInput(t *testing.T) {
	sessions := &fakeSessionService{}
	s := newTestServer(t, config.Config{}, ServerParams{SessionSvc: sessions})

	rec := doRequest(s, http.MethodPost, "/api/sessions/77/close", gin.H{
		"paid_amount":     30000,
		"payment_type":    "cash",
		"cashback_amount": 5000,
	}, map[string]string{HeaderAccountID: "1001"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 77, sessions.closeReq.SessionID)
	assert.Equal(t, sessiondomain.PaymentCash, sessions.closeReq.PaymentType)

	var resp struct {
		Data sessiondomain.Settlement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 15000, resp.Data.DebtAmount)
}

func TestCloseSessionSurfacesValidationCode(t *testing.T) {
	sessions := &fakeSessionService{closeErr: sessiondomain.ErrPaymentExceedsTotal.WithMessage("paid amount 60000 plus cashback 0 exceeds total 50000")}
	s := newTestServer(t, config.Config{}, ServerParams{SessionSvc: sessions})

	rec := doRequest(s, http.MethodPost, "/api/sessions/77/close", gin.H{
		"paid_amount":  60000,
		"payment_type": "cash",
	}, map[string]string{HeaderAccountID: "1001"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "payment_exceeds_total", payload.Code)
	assert.Contains(t, payload.Message, "60000")
}

func TestMalformedPathIDIsNotFound(t *testing.T) {
	s := newTestServer(t, config.Config{}, ServerParams{TableSvc: &fakeTableService{}})

	rec := doRequest(s, http.MethodGet, "/api/tables/abc", nil, map[string]string{HeaderAccountID: "1001"})

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "table_not_found", decodeError(t, rec).Code)
}

func TestRateLimitPerAccount(t *testing.T) {
	limiter, err := ratelimit.NewLimiter(ratelimit.LimiterParams{
		Config: config.Config{RateLimit: "2-M"},
		Log:    zap.NewNop(),
	})
	require.NoError(t, err)
	s := newTestServer(t, config.Config{}, ServerParams{TableSvc: &fakeTableService{}, Limiter: limiter})

	first := map[string]string{HeaderAccountID: "1001"}
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/api/tables", nil, first).Code)
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/api/tables", nil, first).Code)

	rec := doRequest(s, http.MethodGet, "/api/tables", nil, first)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	other := map[string]string{HeaderAccountID: "1002"}
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/api/tables", nil, other).Code)
}
