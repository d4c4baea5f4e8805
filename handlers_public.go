package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/mailer"
	"github.com/tomaszgubala/car-dealer/models"
	"github.com/tomaszgubala/car-dealer/utils"
)

func listVehiclesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.VehicleFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		page, err := models.ListVehicles(c.Request.Context(), &filter)
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "listVehicles", "listing vehicles", filter, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list vehicles"})
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func vehicleDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		vehicle, err := models.GetVehicleBySlug(c.Request.Context(), slug)
		if err != nil {
			if errors.Is(err, models.ErrVehicleNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
				return
			}
			config.LogError(config.GetLogger(), "handlers", "vehicleDetail", "loading vehicle", slug, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load vehicle"})
			return
		}

		similar, err := models.GetSimilarVehicles(c.Request.Context(), vehicle.ID, vehicle.Make, vehicle.Type, 3)
		if err != nil {
			// Detail page still works without the similar strip.
			config.LogError(config.GetLogger(), "handlers", "vehicleDetail", "loading similar vehicles", vehicle.ID, err)
			similar = nil
		}

		recordEvent(c, models.EventTypeVehicleView, &vehicle.ID)

		c.JSON(http.StatusOK, gin.H{
			"vehicle": vehicle,
			"similar": similar,
		})
	}
}

func filterOptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		options, err := models.GetFilterOptions(c.Request.Context())
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "filterOptions", "loading filter options", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load filters"})
			return
		}
		c.JSON(http.StatusOK, options)
	}
}

func createLeadHandler(mail *mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewLead
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Bots fill the hidden website field; answer as if it worked.
		if input.Website != "" {
			c.JSON(http.StatusCreated, gin.H{"ok": true})
			return
		}

		ipHash := utils.HashIp(utils.ClientIp(c.Request))
		lead, err := models.CreateLead(c.Request.Context(), &input, ipHash, c.Request.UserAgent())
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "createLead", "storing lead", input.Type, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store lead"})
			return
		}

		recordEvent(c, models.EventTypeCtaForm, lead.VehicleId)

		go func(lead *models.Lead) {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			if err := mail.SendLeadNotification(ctx, lead); err != nil {
				config.LogError(config.GetLogger(), "handlers", "createLead", "sending lead notification", lead.ID, err)
			}
		}(lead)

		c.JSON(http.StatusCreated, gin.H{"ok": true, "id": lead.ID})
	}
}

type statEventRequest struct {
	Type      models.EventType `json:"type" binding:"required"`
	VehicleId *int             `json:"vehicle_id"`
}

func recordEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !req.Type.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
			return
		}
		recordEvent(c, req.Type, req.VehicleId)
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	}
}

// recordEvent is fire-and-forget; analytics never fail a user request.
func recordEvent(c *gin.Context, eventType models.EventType, vehicleId *int) {
	ipHash := utils.HashIp(utils.ClientIp(c.Request))
	userAgent := c.Request.UserAgent()
	referer := c.Request.Referer()
	if err := models.CreateStatEvent(c.Request.Context(), eventType, vehicleId, ipHash, userAgent, referer); err != nil {
		config.LogError(config.GetLogger(), "handlers", "recordEvent", "storing stat event", eventType, err)
	}
}
