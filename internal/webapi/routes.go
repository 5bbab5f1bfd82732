package webapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deadmanoz/data-carry-research-sub003/internal/analytics"
	"github.com/deadmanoz/data-carry-research-sub003/internal/store"
)

// requestID middleware stamps every response with a unique X-Request-Id,
// the same way the teacher tags each evidence edge with a fresh uuid.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Writer.Header().Set("X-Request-Id", id)
		c.Set("requestID", id)
		c.Next()
	}
}

type handler struct {
	store *store.Store
	stats *analytics.Analytics
	hub   *Hub
}

// NewRouter builds the read-only gin engine: health, pipeline progress,
// the analytics aggregations, decoded-payload listing, and a websocket
// progress stream. The Hub behind the stream is created here and not
// returned, so nothing outside this package broadcasts on it.
func NewRouter(s *store.Store, a *analytics.Analytics) *gin.Engine {
	r := gin.Default()
	r.Use(requestID())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	h := &handler{store: s, stats: a, hub: NewHub()}
	go h.hub.Run()

	api := r.Group("/api/v1")
	{
		api.GET("/health", h.handleHealth)
		api.GET("/progress", h.handleProgress)
		api.GET("/stream", h.hub.Subscribe)
		api.GET("/decoded", h.handleDecoded)

		an := api.Group("/analytics")
		{
			an.GET("/dust", h.handleDust)
			an.GET("/fees", h.handleFees)
			an.GET("/variants", h.handleVariants)
			an.GET("/spendability", h.handleSpendability)
			an.GET("/content-types", h.handleContentTypes)
			an.GET("/multisig-configs", h.handleMultisigConfigs)
			an.GET("/tx-sizes", h.handleTxSizes)
		}
	}

	return r
}

func (h *handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"stage":  "datacarry-pipeline",
	})
}

// handleProgress reports the Stage 1 checkpoint (null when no resume is in
// flight). It reports no per-stage row counts for enrich, classify or
// decode.
func (h *handler) handleProgress(c *gin.Context) {
	ctx := c.Request.Context()

	cp, err := h.store.GetCheckpoint(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"checkpoint": cp}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) handleDecoded(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, total, err := h.store.DecodedPayloadsPage(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "totalCount": total, "page": page, "limit": limit})
}

func (h *handler) handleDust(c *gin.Context) {
	rows, err := h.stats.DustSummary(c.Request.Context())
	respondAnalytics(c, rows, err)
}

func (h *handler) handleFees(c *gin.Context) {
	rows, err := h.stats.FeeSummary(c.Request.Context())
	respondAnalytics(c, rows, err)
}

func (h *handler) handleVariants(c *gin.Context) {
	rows, err := h.stats.VariantTemporal(c.Request.Context())
	respondAnalytics(c, rows, err)
}

func (h *handler) handleSpendability(c *gin.Context) {
	rows, err := h.stats.SpendabilitySummary(c.Request.Context())
	respondAnalytics(c, rows, err)
}

func (h *handler) handleContentTypes(c *gin.Context) {
	cov, err := h.stats.ContentTypeCoverage(c.Request.Context())
	respondAnalytics(c, cov, err)
}

func (h *handler) handleMultisigConfigs(c *gin.Context) {
	rows, err := h.stats.MultisigConfigStats(c.Request.Context())
	respondAnalytics(c, rows, err)
}

func (h *handler) handleTxSizes(c *gin.Context) {
	width, _ := strconv.Atoi(c.DefaultQuery("bucketWidth", "100"))
	rows, err := h.stats.TxSizeHistogram(c.Request.Context(), width)
	respondAnalytics(c, rows, err)
}

func respondAnalytics(c *gin.Context, data any, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
