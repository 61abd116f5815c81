package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/cueledger/internal/order/domain"
	sessiondomain "github.com/smallbiznis/cueledger/internal/session/domain"
)

type openSessionRequest struct {
	TableID    string `json:"table_id"`
	CustomerID string `json:"customer_id"`
	Notes      string `json:"notes"`
}

type closeSessionRequest struct {
	PaidAmount     int64  `json:"paid_amount"`
	PaymentType    string `json:"payment_type"`
	CashbackAmount int64  `json:"cashback_amount"`
	Notes          string `json:"notes"`
}

type addOrderRequest struct {
	ItemName  string `json:"item_name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (s *Server) OpenSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	tableID, err := parseOptionalSnowflakeID(req.TableID)
	if err != nil || tableID == nil {
		AbortWithError(c, newValidationError("table_id", "invalid_table_id", "table_id is required"))
		return
	}
	customerID, err := parseOptionalSnowflakeID(req.CustomerID)
	if err != nil || customerID == nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer_id", "customer_id is required"))
		return
	}

	resp, err := s.sessionSvc.Open(c.Request.Context(), sessiondomain.OpenRequest{
		Actor:      actorFromContext(c),
		TableID:    *tableID,
		CustomerID: *customerID,
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListActiveSessions(c *gin.Context) {
	resp, err := s.sessionSvc.ListActive(c.Request.Context(), actorFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSessionHistory(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"), 0)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}
	offset, err := parseOptionalInt(c.Query("offset"), 0)
	if err != nil || offset < 0 {
		AbortWithError(c, newValidationError("offset", "invalid_offset", "invalid offset"))
		return
	}

	resp, err := s.sessionSvc.History(c.Request.Context(), sessiondomain.HistoryRequest{
		Actor:  actorFromContext(c),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, sessiondomain.ErrNotFound)
		return
	}

	resp, err := s.sessionSvc.Get(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CloseSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, sessiondomain.ErrNotFound)
		return
	}
	var req closeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.Close(c.Request.Context(), sessiondomain.CloseRequest{
		Actor:          actorFromContext(c),
		SessionID:      id,
		PaidAmount:     req.PaidAmount,
		PaymentType:    sessiondomain.PaymentType(strings.TrimSpace(req.PaymentType)),
		CashbackAmount: req.CashbackAmount,
		Notes:          strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSessionReceipt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, sessiondomain.ErrNotFound)
		return
	}

	doc, err := s.receiptSvc.Session(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}

func (s *Server) ListSessionOrders(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, sessiondomain.ErrNotFound)
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddSessionOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, sessiondomain.ErrNotFound)
		return
	}
	var req addOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Add(c.Request.Context(), orderdomain.AddRequest{
		Actor:     actorFromContext(c),
		SessionID: id,
		ItemName:  strings.TrimSpace(req.ItemName),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RemoveOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, orderdomain.ErrNotFound)
		return
	}

	if err := s.orderSvc.Remove(c.Request.Context(), orderdomain.RemoveRequest{
		Actor:   actorFromContext(c),
		OrderID: id,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListSessionPayments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, sessiondomain.ErrNotFound)
		return
	}

	resp, err := s.paymentSvc.ListBySession(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
