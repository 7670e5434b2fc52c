package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const uploadForm = `
<form action="/" method="post" enctype="multipart/form-data">
    <input type="file" name="file" id="file">
    <input type="submit" value="Upload" name="submit">
</form>
`

// Liveness is the orchestration probe: the process is up, nothing
// else is checked.
func (h HandlerSet) Liveness(c *gin.Context) {
	c.Status(http.StatusOK)
}

// UploadForm serves a minimal browser upload form unless hidden.
func (h HandlerSet) UploadForm(c *gin.Context) {
	if h.cfg.HideUploadForm {
		c.String(http.StatusOK, "")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(uploadForm))
}
