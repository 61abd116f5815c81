package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	cashbackdomain "github.com/smallbiznis/cueledger/internal/cashback/domain"
)

type updateCashbackSettingsRequest struct {
	Enabled         bool            `json:"enabled"`
	Percentage      decimal.Decimal `json:"percentage"`
	MinAmount       int64           `json:"min_amount"`
	ApplyOnDebt     bool            `json:"apply_on_debt"`
	MaxUsagePercent decimal.Decimal `json:"max_usage_percent"`
	ApplyOnExtras   bool            `json:"apply_on_extras"`
}

func (s *Server) GetCashbackBalance(c *gin.Context) {
	resp, err := s.cashbackSvc.AccountBalance(c.Request.Context(), actorFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCashbackHistory(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"), 50)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	customerID, err := parseOptionalSnowflakeID(c.Query("customer_id"))
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer_id", "invalid customer_id"))
		return
	}

	resp, err := s.cashbackSvc.History(c.Request.Context(), cashbackdomain.HistoryRequest{
		Actor:      actorFromContext(c),
		CustomerID: customerID,
		Limit:      limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCashbackSettings(c *gin.Context) {
	resp, err := s.cashbackSvc.GetSettings(c.Request.Context(), actorFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCashbackSettings(c *gin.Context) {
	var req updateCashbackSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cashbackSvc.UpdateSettings(c.Request.Context(), cashbackdomain.UpdateSettingsRequest{
		Actor:           actorFromContext(c),
		Enabled:         req.Enabled,
		Percentage:      req.Percentage,
		MinAmount:       req.MinAmount,
		ApplyOnDebt:     req.ApplyOnDebt,
		MaxUsagePercent: req.MaxUsagePercent,
		ApplyOnExtras:   req.ApplyOnExtras,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ExpireCashback runs the expiry sweep for the caller's account only.
func (s *Server) ExpireCashback(c *gin.Context) {
	resp, err := s.cashbackSvc.ExpireDue(c.Request.Context(), actorFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
