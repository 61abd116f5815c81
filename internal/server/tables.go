package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tabledomain "github.com/smallbiznis/cueledger/internal/table/domain"
)

type createTableRequest struct {
	Name       string `json:"name"`
	HourlyRate int64  `json:"hourly_rate"`
}

type setTableActiveRequest struct {
	Active *bool `json:"active"`
}

type updateRateRequest struct {
	HourlyRate int64 `json:"hourly_rate"`
}

func (s *Server) CreateTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tableSvc.Create(c.Request.Context(), tabledomain.CreateTableRequest{
		Actor:      actorFromContext(c),
		Name:       strings.TrimSpace(req.Name),
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListTables(c *gin.Context) {
	resp, err := s.tableSvc.List(c.Request.Context(), actorFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, tabledomain.ErrNotFound)
		return
	}

	resp, err := s.tableSvc.Get(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetTableActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, tabledomain.ErrNotFound)
		return
	}
	var req setTableActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "active is required"))
		return
	}

	resp, err := s.tableSvc.SetActive(c.Request.Context(), actorFromContext(c), id, *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTableRate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, tabledomain.ErrNotFound)
		return
	}
	var req updateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tableSvc.UpdateRate(c.Request.Context(), tabledomain.UpdateRateRequest{
		Actor:   actorFromContext(c),
		TableID: id,
		NewRate: req.HourlyRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTableRateHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, tabledomain.ErrNotFound)
		return
	}

	resp, err := s.tableSvc.ListRateHistory(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		AbortWithError(c, tabledomain.ErrNotFound)
		return
	}

	if err := s.tableSvc.Delete(c.Request.Context(), actorFromContext(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
