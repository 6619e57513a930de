package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/internal/db"
	"github.com/rawblock/recon-engine/internal/dispatch"
	"github.com/rawblock/recon-engine/pkg/models"
)

type APIHandler struct {
	dbStore *db.PostgresStore
	groups  map[string]*config.GroupConfig
	wsHub   *Hub
}

func SetupRouter(dbStore *db.PostgresStore, groups map[string]*config.GroupConfig, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://rawblock.net,https://www.rawblock.net
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			// Check if the request origin is in the allowed list
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{dbStore: dbStore, groups: groups, wsHub: wsHub}

	rateLimiter := NewRateLimiterFromEnv()

	api := r.Group("/api/v1")
	{
		api.GET("/health", handler.handleHealth)
		api.GET("/groups", handler.handleGetGroups)
		api.GET("/stream", wsHub.Subscribe)

		protected := api.Group("")
		protected.Use(AuthMiddleware(), rateLimiter.Middleware())
		{
			protected.POST("/reconcile", handler.handleReconcile)
			protected.GET("/runs", handler.handleListRuns)
			protected.GET("/runs/:id", handler.handleGetRun)
		}
	}

	// Serve Static Dashboard
	r.Static("/dashboard", "./public")

	return r
}

// reconcileRequest carries both statement sides. Each record names its
// exchange group; the dispatcher partitions and runs one pipeline per group.
type reconcileRequest struct {
	Trader   []models.RawTrade `json:"trader"`
	Exchange []models.RawTrade `json:"exchange"`
}

func (h *APIHandler) handleReconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if len(req.Trader) == 0 && len(req.Exchange) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No records supplied"})
		return
	}

	d := dispatch.New(h.groups)
	outcome, err := d.Run(req.Trader, req.Exchange, BroadcastMatch(h.wsHub))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	// Persist to DB if connected
	if h.dbStore != nil {
		for _, result := range outcome.Results {
			if err := h.dbStore.SaveRun(context.Background(), result); err != nil {
				log.Printf("Failed to save run %s to DB: %v", result.RunID, err)
			}
		}
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *APIHandler) handleListRuns(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run archive not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.dbStore.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *APIHandler) handleGetRun(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run archive not configured"})
		return
	}

	run, err := h.dbStore.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleGetGroups reports the configured exchange groups and their rule
// sequences, so a client can see what a run will execute before posting one.
func (h *APIHandler) handleGetGroups(c *gin.Context) {
	out := make(map[string][]string, len(h.groups))
	for name, gc := range h.groups {
		out[name] = gc.RuleIDs()
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"groups": len(h.groups),
	}
	if h.dbStore != nil {
		status["archive"] = "connected"
	} else {
		status["archive"] = "disabled"
	}
	c.JSON(http.StatusOK, status)
}
