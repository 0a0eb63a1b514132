package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
)

func (s *Server) GetPricing(c *gin.Context) {
	resp, err := s.pricingSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePricing(c *gin.Context) {
	var req pricingdomain.UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) QuotePricing(c *gin.Context) {
	resp, err := s.pricingSvc.Quote(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
