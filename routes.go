package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"news-verify/models"
	"news-verify/services"
	"news-verify/storage"
)

// respondError maps the service error taxonomy onto HTTP statuses. Dependency
// failures are logged by the services and never leak details to the client.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var partial *services.PartialFailureError
	var invalid *services.ValidationError
	switch {
	case errors.As(err, &partial):
		c.JSON(http.StatusMultiStatus, gin.H{
			"error": "News saved but AI detection failed",
			"news":  gin.H{"id": partial.NewsID},
		})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Message})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "News not found"})
	default:
		if !errors.Is(err, services.ErrDependency) {
			log.Error("Unhandled request error", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func setupNewsRoutes(router *gin.Engine, sub *services.SubmissionService, log *zap.Logger) {
	rg := router.Group("/api/news", requireUser())

	rg.POST("/submit", func(c *gin.Context) {
		var req struct {
			Title         *string `json:"title"`
			Content       string  `json:"content"`
			URL           *string `json:"url"`
			ImageFilename *string `json:"imageFilename"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		res, err := sub.Submit(c.Request.Context(), services.SubmitInput{
			SubmitterID: currentUser(c),
			Title:       req.Title,
			Content:     req.Content,
			URL:         req.URL,
			ImageRef:    req.ImageFilename,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":   "News submitted and analyzed successfully",
			"news":      res.News,
			"detection": res.Detection,
		})
	})

	rg.GET("/history/:userId", func(c *gin.Context) {
		userID := c.Param("userId")
		if userID != currentUser(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "History is only visible to its owner"})
			return
		}
		history, err := sub.History(c.Request.Context(), userID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"news": history})
	})

	rg.GET("/:id", func(c *gin.Context) {
		detail, err := sub.GetNews(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	})

	rg.POST("/:id/detect", func(c *gin.Context) {
		res, err := sub.Redetect(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":   "News analyzed successfully",
			"news":      res.News,
			"detection": res.Detection,
		})
	})
}

func setupReportRoutes(router *gin.Engine, cons *services.ConsensusService, log *zap.Logger) {
	rg := router.Group("/api/reports", requireUser())

	rg.POST("/submit", func(c *gin.Context) {
		var req struct {
			NewsID  string  `json:"newsId"`
			Vote    string  `json:"vote"`
			Comment *string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		report, outcome, err := cons.RecordVote(c.Request.Context(), req.NewsID, currentUser(c), models.Vote(req.Vote), req.Comment)
		if err != nil {
			respondError(c, log, err)
			return
		}
		status := http.StatusOK
		if outcome == storage.OutcomeInserted {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"message": "Report submitted successfully",
			"report":  report,
			"outcome": outcome,
		})
	})

	rg.GET("/news/:newsId", func(c *gin.Context) {
		reports, tally, err := cons.Reports(c.Request.Context(), c.Param("newsId"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": reports, "tally": tally})
	})
}

func setupAdminRoutes(router *gin.Engine, mod *services.ModerationService, adminKey string, log *zap.Logger) {
	rg := router.Group("/api/admin", requireAdmin(adminKey))

	rg.GET("/reports", func(c *gin.Context) {
		reported, err := mod.ListReported(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": reported})
	})

	rg.POST("/fake-news", func(c *gin.Context) {
		var req struct {
			Title      string   `json:"title"`
			Content    *string  `json:"content"`
			SourceURL  *string  `json:"sourceUrl"`
			Tags       []string `json:"tags"`
			VerifiedBy string   `json:"verifiedBy"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		entry, err := mod.AddToRegistry(c.Request.Context(), services.RegistryInput{
			Title:     req.Title,
			Content:   req.Content,
			SourceURL: req.SourceURL,
			Tags:      req.Tags,
			Curator:   req.VerifiedBy,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":  "Fake news added to database",
			"fakeNews": entry,
		})
	})

	rg.GET("/fake-news", func(c *gin.Context) {
		entries, err := mod.SearchRegistry(c.Request.Context(), c.Query("search"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"fakeNews": entries})
	})

	rg.DELETE("/news/:id", func(c *gin.Context) {
		if err := mod.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "News deleted successfully"})
	})

	rg.GET("/stats", func(c *gin.Context) {
		st, err := mod.Stats(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func setupHealthRoutes(router *gin.Engine, db pinger, log *zap.Logger) {
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			log.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
