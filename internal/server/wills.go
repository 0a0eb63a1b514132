package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	willdomain "github.com/smallbiznis/mywill/internal/will/domain"
)

func (s *Server) ListWills(c *gin.Context) {
	var req willdomain.ListWillRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.willSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateWill(c *gin.Context) {
	var req willdomain.CreateWillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.willSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetWill(c *gin.Context) {
	resp, err := s.willSvc.Get(c.Request.Context(), idParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateWill(c *gin.Context) {
	var req willdomain.UpdateWillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.willSvc.Update(c.Request.Context(), idParam(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteWill(c *gin.Context) {
	if err := s.willSvc.Delete(c.Request.Context(), idParam(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) PreviewWill(c *gin.Context) {
	resp, err := s.willSvc.Preview(c.Request.Context(), idParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PreviewWillPDF(c *gin.Context) {
	resp, err := s.willSvc.Preview(c.Request.Context(), idParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := "will-" + resp.WillID.String() + "-v" + strconv.Itoa(resp.Version) + "-draft.pdf"
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Header("X-Checksum-SHA256", resp.ChecksumSHA256)
	c.Data(http.StatusOK, "application/pdf", resp.PDF)
}

func (s *Server) SendWillForApproval(c *gin.Context) {
	resp, err := s.willSvc.SendForApproval(c.Request.Context(), idParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteWillAttestation(c *gin.Context) {
	var req willdomain.CompleteAttestationRequest
	// an empty body means no witnesses
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.willSvc.CompleteAttestation(c.Request.Context(), idParam(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
