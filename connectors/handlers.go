package connectors

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/models"
)

type runImportRequest struct {
	Connector string `json:"connector"`
}

// RunImportHandler starts a synchronous import run on admin request.
// An empty connector name runs every registered connector.
func RunImportHandler(importer *Importer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runImportRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		results := importer.Run(c.Request.Context(), req.Connector)
		if len(results) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "unknown connector",
				"connector": req.Connector,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// CronHandler is the endpoint an external scheduler (Cloud Scheduler,
// crontab and curl) hits to trigger the periodic run. It shares the
// scheduler's overlap guard, so a slow run makes later triggers no-ops.
func CronHandler(scheduler *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := os.Getenv("IMPORT_SECRET_TOKEN")
		if secret == "" {
			config.LogError(config.GetLogger(), moduleName, "CronHandler", "checking trigger secret", nil, errors.New("IMPORT_SECRET_TOKEN not configured"))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "import trigger not configured"})
			return
		}

		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		results, ran := scheduler.Tick(c.Request.Context())
		if !ran {
			c.JSON(http.StatusOK, gin.H{"skipped": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// JobHistoryHandler lists recent import jobs, optionally per connector.
func JobHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		jobs, err := models.ListImportJobs(c.Request.Context(), c.Query("connector"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list import jobs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}
