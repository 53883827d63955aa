package httpapi

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
)

func (h *handler) listMeetings(c *gin.Context) {
	list, err := h.query.List(c.Request.Context())
	if err != nil {
		h.logger.Error(c.Request.Context(), "List meetings failed: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch meetings"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) getMeeting(c *gin.Context) {
	id, ok := meetingID(c)
	if !ok {
		return
	}

	rec, err := h.query.Get(c.Request.Context(), id)
	if err != nil {
		h.readError(c, id, err)
		return
	}
	rec.Normalize()
	c.JSON(http.StatusOK, rec)
}

func (h *handler) meetingDocument(c *gin.Context) {
	id, ok := meetingID(c)
	if !ok {
		return
	}
	if h.opts.ExportsDir == "" {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Document export is disabled"})
		return
	}

	exp, err := h.query.Document(c.Request.Context(), id, h.opts.ExportsDir)
	if err != nil {
		h.readError(c, id, err)
		return
	}
	defer func() {
		if err := os.Remove(exp.Path); err != nil {
			h.logger.Warn(c.Request.Context(), "Failed to remove export %s: %v", exp.Path, err)
		}
	}()
	c.FileAttachment(exp.Path, exp.Name)
}

func (h *handler) download(c *gin.Context) {
	name := c.Param("filename")
	if !safeFilename(name) || h.opts.ArtifactsDir == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid filename"})
		return
	}

	path := filepath.Join(h.opts.ArtifactsDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, errorResponse{Error: "File not found"})
		return
	}
	c.FileAttachment(path, name)
}

func (h *handler) healthz(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) readError(c *gin.Context, id int64, err error) {
	if meeting.IsNotFound(err) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Meeting not found"})
		return
	}
	h.logger.Error(c.Request.Context(), "Read meeting %d failed: %v", id, err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch meeting"})
}

// meetingID parses the :id parameter and writes a 400 when it is invalid.
func meetingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid meeting id"})
		return 0, false
	}
	return id, true
}

func safeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}
