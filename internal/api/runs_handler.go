package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"degpredict/domain/core"
	"degpredict/domain/prediction"
	apperrors "degpredict/internal/errors"
	"degpredict/ports"
)

const defaultListLimit = 50

// RunsHandler serves completed runs as JSON.
type RunsHandler struct {
	runs  ports.RunRepository
	store ports.ArtifactStore
}

// NewRunsHandler creates a new runs handler. store may be nil, which disables
// artifact downloads.
func NewRunsHandler(runs ports.RunRepository, store ports.ArtifactStore) *RunsHandler {
	return &RunsHandler{runs: runs, store: store}
}

// Register mounts the handler routes on a router group.
func (h *RunsHandler) Register(r gin.IRouter) {
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	r.GET("/runs/:id/predictions", h.GetPredictions)
	r.GET("/runs/:id/summary", h.GetSummary)
	r.GET("/runs/:id/artifacts/:name", h.GetArtifact)
}

// ListRuns returns the newest runs first, up to ?limit (default 50).
func (h *RunsHandler) ListRuns(c *gin.Context) {
	limit := defaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(c, apperrors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun returns one run manifest.
func (h *RunsHandler) GetRun(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	m, err := h.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetPredictions returns a run's records, optionally filtered by ?pathway
// and ?confidence.
func (h *RunsHandler) GetPredictions(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	records, err := h.runs.GetPredictions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	pathway := c.Query("pathway")
	var tier prediction.Confidence
	if s := c.Query("confidence"); s != "" {
		if tier, err = prediction.ParseConfidence(s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	filtered := make([]prediction.Record, 0, len(records))
	for _, r := range records {
		if pathway != "" && r.Pathway != pathway {
			continue
		}
		if tier != "" && r.Confidence != tier {
			continue
		}
		filtered = append(filtered, r)
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "predictions": filtered, "count": len(filtered)})
}

// GetSummary returns per-pathway counts and the confidence distribution.
func (h *RunsHandler) GetSummary(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	records, err := h.runs.GetPredictions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":     id,
		"pathways":   prediction.Summarize(records),
		"confidence": prediction.ConfidenceDistribution(records),
	})
}

// GetArtifact streams one stored artifact of a run.
func (h *RunsHandler) GetArtifact(c *gin.Context) {
	if h.store == nil {
		respondError(c, apperrors.NotFound("artifact store"))
		return
	}
	id, ok := runID(c)
	if !ok {
		return
	}
	name := c.Param("name")
	if strings.Contains(name, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artifact name"})
		return
	}
	key := core.ArtifactKind(name).Key(id)
	info, body, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		_ = c.Error(err)
	}
}

func runID(c *gin.Context) (core.RunID, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if errors.Is(err, core.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
