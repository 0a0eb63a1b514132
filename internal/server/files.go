package server

import (
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DownloadFile streams a stored artifact when the token was minted for that key.
func (s *Server) DownloadFile(c *gin.Context) {
	key := c.Param("key")
	if err := s.storage.Verify(key, c.Query("token")); err != nil {
		AbortWithError(c, err)
		return
	}

	rc, err := s.storage.Open(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", contentTypeFor(key))
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		s.log.Warn("file stream interrupted", zap.String("key", key), zap.Error(err))
	}
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
