package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-pager-losses/internal/analysis"
	"github.com/mr1hm/go-pager-losses/internal/metrics"
	"github.com/mr1hm/go-pager-losses/internal/models"
	"github.com/mr1hm/go-pager-losses/internal/pipeline"
	"github.com/mr1hm/go-pager-losses/internal/progress"
	"github.com/mr1hm/go-pager-losses/internal/report"
)

// RunFunc executes a fresh pipeline run for POST /api/refresh.
type RunFunc func(ctx context.Context) (*pipeline.Result, error)

// Handler serves the latest pipeline result read-only. A refresh swaps the
// result pointer under the lock.
type Handler struct {
	mu         sync.RWMutex
	result     *pipeline.Result
	run        RunFunc
	refreshing atomic.Bool

	progress *progress.Broadcaster
	metrics  *metrics.Collector
}

func NewHandler(run RunFunc, broadcaster *progress.Broadcaster, m *metrics.Collector) *Handler {
	return &Handler{
		run:      run,
		progress: broadcaster,
		metrics:  m,
	}
}

func (h *Handler) SetResult(r *pipeline.Result) {
	h.mu.Lock()
	h.result = r
	h.mu.Unlock()
}

func (h *Handler) Result() *pipeline.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/impacts", h.getImpacts)
	api.GET("/merged", h.getMerged)
	api.GET("/alerts", h.getAlerts)
	api.GET("/histogram", h.getHistogram)
	api.GET("/charts/histogram.png", h.histogramChart)
	api.GET("/charts/fatalities.png", h.fatalityChart)
	api.GET("/progress", h.streamProgress)
	api.POST("/refresh", h.refresh)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if res := h.Result(); res != nil {
		resp["run_id"] = res.RunID
		resp["finished_at"] = res.StartedAt.Add(res.Duration)
	}
	c.JSON(http.StatusOK, resp)
}

// current writes 503 and returns nil when no run has completed yet.
func (h *Handler) current(c *gin.Context) *pipeline.Result {
	res := h.Result()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "no pipeline result available",
		})
	}
	return res
}

type impactView struct {
	ID               string  `json:"id"`
	Time             string  `json:"time"`
	Magnitude        float64 `json:"magnitude"`
	LossExtent       string  `json:"loss_extent"`
	EffectType       string  `json:"effect_type"`
	LossQuantifier   string  `json:"loss_quantifier"`
	LossValue        int32   `json:"loss_value"`
	Location         string  `json:"location"`
	CollectionSource string  `json:"collection_source"`
	DatabaseID       string  `json:"database_id"`
	Comment          string  `json:"comment"`
	AlertLevel       string  `json:"alert_level"`
}

func newImpactView(i models.Impact) impactView {
	p := i.Passport
	return impactView{
		ID:               i.HydraID,
		Time:             i.HydraTime.Format("2006-01-02T15:04:05.000Z07:00"),
		Magnitude:        i.Magnitude,
		LossExtent:       p.LossExtent,
		EffectType:       p.EffectType,
		LossQuantifier:   p.LossQuantifier,
		LossValue:        p.LossValue,
		Location:         p.Location,
		CollectionSource: p.CollectionSource,
		DatabaseID:       p.DatabaseID,
		Comment:          p.Comment,
		AlertLevel:       strings.ToLower(string(models.AlertLevelFor(float64(p.LossValue)))),
	}
}

func (h *Handler) getImpacts(c *gin.Context) {
	res := h.current(c)
	if res == nil {
		return
	}

	minLoss := int64(-1)
	if v := c.Query("min_loss"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			minLoss = n
		}
	}
	limit := len(res.Observed)
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim < limit {
			limit = lim
		}
	}

	views := make([]impactView, 0, limit)
	for _, imp := range res.Observed {
		if len(views) == limit {
			break
		}
		if int64(imp.Passport.LossValue) < minLoss {
			continue
		}
		views = append(views, newImpactView(imp))
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":  res.RunID,
		"count":   len(views),
		"impacts": views,
	})
}

func (h *Handler) getMerged(c *gin.Context) {
	res := h.current(c)
	if res == nil {
		return
	}

	merged := res.Merged
	if al := c.Query("alert_level"); al != "" {
		level := models.AlertLevel(strings.ToUpper(al))
		if level.Rank() >= 0 {
			merged = filterMerged(merged, func(m models.Merged) bool { return m.ObservedLevel == level })
		}
	}
	if pl := c.Query("predicted_level"); pl != "" {
		level := models.AlertLevel(strings.ToUpper(pl))
		if level.Rank() >= 0 {
			merged = filterMerged(merged, func(m models.Merged) bool { return m.PredictedLevel == level })
		}
	}
	if m := c.Query("min_magnitude"); m != "" {
		if mag, err := strconv.ParseFloat(m, 64); err == nil {
			merged = filterMerged(merged, func(m models.Merged) bool { return m.Impact.Magnitude >= mag })
		}
	}

	fc := toGeoJSON(merged)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func filterMerged(merged []models.Merged, keep func(models.Merged) bool) []models.Merged {
	out := make([]models.Merged, 0, len(merged))
	for _, m := range merged {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (h *Handler) getAlerts(c *gin.Context) {
	res := h.current(c)
	if res == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":  res.RunID,
		"bands":   bandViews(),
		"summary": res.Alerts,
		"points":  res.Points,
	})
}

type bandView struct {
	Level models.AlertLevel `json:"level"`
	Min   float64           `json:"min"`
	Max   *float64          `json:"max"` // null for the open-ended top band
}

func bandViews() []bandView {
	views := make([]bandView, len(models.AlertBands))
	for i, b := range models.AlertBands {
		views[i] = bandView{Level: b.Level, Min: b.Min}
		if !math.IsInf(b.Max, 1) {
			hi := b.Max
			views[i].Max = &hi
		}
	}
	return views
}

func (h *Handler) getHistogram(c *gin.Context) {
	res := h.current(c)
	if res == nil {
		return
	}

	bins := res.Histogram
	if w := c.Query("bin_width"); w != "" {
		width, err := strconv.ParseFloat(w, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bin_width"})
			return
		}
		bins, err = analysis.Histogram(analysis.Magnitudes(res.Observed), width)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": res.RunID,
		"bins":   bins,
	})
}

func (h *Handler) histogramChart(c *gin.Context) {
	res := h.current(c)
	if res == nil {
		return
	}
	p, err := report.HistogramChart(res.Histogram)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.writePNG(c, func(buf *bytes.Buffer) error { return report.WriteChart(buf, p, "png") })
}

func (h *Handler) fatalityChart(c *gin.Context) {
	res := h.current(c)
	if res == nil {
		return
	}
	p, err := report.FatalityChart(res.Points)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.writePNG(c, func(buf *bytes.Buffer) error { return report.WriteChart(buf, p, "png") })
}

func (h *Handler) writePNG(c *gin.Context, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		slog.Error("chart render failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render chart"})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// streamProgress relays fetch progress as server-sent events until the
// client goes away or the broadcaster closes.
func (h *Handler) streamProgress(c *gin.Context) {
	if h.progress == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "progress stream disabled"})
		return
	}

	id, events := h.progress.Subscribe()
	defer h.progress.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Status), ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (h *Handler) refresh(c *gin.Context) {
	if h.run == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "refresh not configured"})
		return
	}
	if !h.refreshing.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "refresh already in progress"})
		return
	}
	defer h.refreshing.Store(false)

	res, err := h.run(c.Request.Context())
	if err != nil {
		slog.Error("refresh failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.SetResult(res)

	c.JSON(http.StatusOK, gin.H{
		"run_id": res.RunID,
		"stages": res.Stages,
		"merged": len(res.Merged),
	})
}
