package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	cashbackdomain "github.com/smallbiznis/cueledger/internal/cashback/domain"
	customerdomain "github.com/smallbiznis/cueledger/internal/customer/domain"
	"github.com/smallbiznis/cueledger/pkg/db/pagination"
)

type createCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type payDebtRequest struct {
	Amount int64  `json:"amount"`
	Kind   string `json:"kind"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Actor: actorFromContext(c),
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		Actor:     actorFromContext(c),
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Name:      strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, customerdomain.ErrNotFound)
		return
	}

	resp, err := s.customerSvc.Get(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PayCustomerDebt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, customerdomain.ErrNotFound)
		return
	}
	var req payDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.PayDebt(c.Request.Context(), customerdomain.PayDebtRequest{
		Actor:      actorFromContext(c),
		CustomerID: id,
		Amount:     req.Amount,
		Kind:       strings.TrimSpace(req.Kind),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetCustomerCashback returns the customer's balance with recent ledger
// entries.
func (s *Server) GetCustomerCashback(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, customerdomain.ErrNotFound)
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"), 50)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	ctx := c.Request.Context()
	act := actorFromContext(c)
	balance, err := s.cashbackSvc.Balance(ctx, act, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entries, err := s.cashbackSvc.History(ctx, cashbackdomain.HistoryRequest{
		Actor:      act,
		CustomerID: &id,
		Limit:      limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"balance": balance,
		"entries": entries,
	}})
}

func (s *Server) AssignLegacyCashback(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, customerdomain.ErrNotFound)
		return
	}

	resp, err := s.cashbackSvc.AssignLegacy(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
