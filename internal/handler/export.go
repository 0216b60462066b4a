package handler

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/pkg/export"
)

// sendExport renders table into a buffer first so a failure can still be
// reported as JSON, then sends it as an attachment named <base>-<date>.<format>.
func sendExport(c *gin.Context, base, format string, table export.Table) {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		log.Printf("[Export] failed to render %s as %s: %v", base, format, err)
		respondError(c, http.StatusInternalServerError, "Failed to generate export", "export_failed")
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", base, time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

// exportFormat reads ?format=, answering 400 for unsupported values.
func exportFormat(c *gin.Context) (string, bool) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "format must be csv or xlsx", "validation_error")
		return "", false
	}
	return format, true
}
