package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salespipeline/internal/models"
)

// @Summary      Stage catalog
// @Tags         Stages
// @Produce      json
// @Success      200  {array}  models.Stage
// @Router       /stages [get]
func ListStages(c *gin.Context) {
	c.JSON(http.StatusOK, models.Stages())
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Me echoes the caller as seen by the authorization layer.
func Me(c *gin.Context) {
	p := principalFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":   p.UserID,
		"role_id":   p.RoleID,
		"can_write": p.CanWrite(),
		"sees_all":  p.SeesAll(),
	})
}
