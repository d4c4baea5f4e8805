package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/models"
	"github.com/tomaszgubala/car-dealer/utils"
)

func adminListVehiclesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.VehicleFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = c.DefaultQuery("status", "ALL")

		page, err := models.ListVehicles(c.Request.Context(), &filter)
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "adminListVehicles", "listing vehicles", filter, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list vehicles"})
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func adminVehicleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		vehicle, err := models.GetVehicleById(c.Request.Context(), id)
		if err != nil {
			respondVehicleError(c, err, "adminVehicle", id)
			return
		}
		c.JSON(http.StatusOK, vehicle)
	}
}

func createVehicleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewVehicle
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vehicle, err := models.CreateVehicle(c.Request.Context(), &input)
		if err != nil {
			if errors.Is(err, utils.ErrorSlugConflict) {
				c.JSON(http.StatusConflict, gin.H{"error": "could not allocate a unique listing address, retry"})
				return
			}
			config.LogError(config.GetLogger(), "handlers", "createVehicle", "creating vehicle", input.Make, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, vehicle)
	}
}

func updateVehicleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewVehicle
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vehicle, err := models.UpdateVehicle(c.Request.Context(), id, &input)
		if err != nil {
			respondVehicleError(c, err, "updateVehicle", id)
			return
		}
		c.JSON(http.StatusOK, vehicle)
	}
}

// Vehicles are never hard-deleted; DELETE pulls the listing off the site.
func deactivateVehicleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		vehicle, err := models.SetVehicleStatus(c.Request.Context(), id, models.VehicleStatusInactive)
		if err != nil {
			respondVehicleError(c, err, "deactivateVehicle", id)
			return
		}
		c.JSON(http.StatusOK, vehicle)
	}
}

func listLeadsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 100
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		leads, err := models.ListRecentLeads(c.Request.Context(), limit)
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "listLeads", "listing leads", limit, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leads"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leads": leads})
	}
}

func dashboardStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := models.GetDashboardStats(c.Request.Context())
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "dashboardStats", "loading dashboard stats", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.ListUsers(c.Request.Context())
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "listUsers", "listing users", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func updateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		actorId, _ := utils.GetUserIdFromContext(c.Request.Context())

		var input models.UpdateUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.UpdateUser(c.Request.Context(), id, actorId, &input)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func deleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		actorId, _ := utils.GetUserIdFromContext(c.Request.Context())
		if err := models.DeleteUser(c.Request.Context(), id, actorId); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func respondVehicleError(c *gin.Context, err error, funcName string, id int) {
	if errors.Is(err, models.ErrVehicleNotFound) || errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}
	config.LogError(config.GetLogger(), "handlers", funcName, "vehicle operation failed", id, err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
