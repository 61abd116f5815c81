package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/cueledger/internal/report/domain"
)

func (s *Server) GetDailyReport(c *gin.Context) {
	resp, err := s.reportSvc.Daily(c.Request.Context(), reportdomain.DailyRequest{
		Actor: actorFromContext(c),
		Date:  strings.TrimSpace(c.Query("date")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
