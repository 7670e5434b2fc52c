package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Fetch serves an original, or a lazily generated derivative when a
// size is requested.
func (h HandlerSet) Fetch(c *gin.Context) {
	path, err := h.variants.Fetch(c.Request.Context(), c.Param("filename"), c.Query("w"), c.Query("h"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.File(path)
}

// Delete removes an original and all of its cached derivatives; the
// response reports how many derivatives went with it.
func (h HandlerSet) Delete(c *gin.Context) {
	removed, err := h.variants.Delete(c.Request.Context(), c.Param("filename"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":               "deleted",
		"cached_files_removed": removed,
	})
}
