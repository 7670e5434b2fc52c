package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"imgvault/api/internal/apperr"
	"imgvault/api/internal/service"
)

type uploadURLRequest struct {
	URL string `json:"url"`
}

// Upload accepts either a multipart "file" field or a JSON body with a
// remote url to fetch. Exactly one source must be present.
func (h HandlerSet) Upload(c *gin.Context) {
	if max := h.cfg.Storage.MaxUploadMB * 1024 * 1024; max > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
	}

	var input service.IngestInput

	switch {
	case strings.HasPrefix(c.ContentType(), "multipart/form-data"):
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			respondError(c, h.log, apperr.Invalid("file is missing"))
			return
		}
		defer file.Close()
		input.File = file
		input.Filename = header.Filename
	case c.ContentType() == "application/json":
		var body uploadURLRequest
		if err := c.ShouldBindJSON(&body); err != nil || body.URL == "" {
			respondError(c, h.log, apperr.Invalid("file is missing"))
			return
		}
		input.URL = body.URL
	default:
		respondError(c, h.log, apperr.Invalid("file is missing"))
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filename": result.Filename})
}
