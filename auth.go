package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/models"
	"github.com/tomaszgubala/car-dealer/utils"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := models.AuthenticateUser(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, utils.ErrorUnauthorized) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			config.LogError(config.GetLogger(), "handlers", "login", "authenticating user", req.Email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, user.Email, string(user.Role))
		if err != nil {
			config.LogError(config.GetLogger(), "handlers", "login", "issuing token", user.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":    user.ID,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}
