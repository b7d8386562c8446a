package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salespipeline/internal/authz"
	"salespipeline/internal/middleware"
	"salespipeline/internal/models"
	"salespipeline/internal/services"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Details []string `json:"details,omitempty"`
}

// tolerant of int / int64 / float64 / string
func getIntFromCtx(c *gin.Context, key string) (int, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getUserAndRole(c *gin.Context) (userID, roleID int) {
	if id, ok := getIntFromCtx(c, middleware.ContextUserID); ok {
		userID = id
	}
	if id, ok := getIntFromCtx(c, middleware.ContextRoleID); ok {
		roleID = id
	}
	return
}

func principalFrom(c *gin.Context) authz.Principal {
	userID, roleID := getUserAndRole(c)
	return authz.Principal{UserID: userID, RoleID: roleID}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name, Kind: string(services.KindValidation)})
		return 0, false
	}
	return id, true
}

// pagination reads page/size the same way for every list endpoint.
func pagination(c *gin.Context) (limit, offset int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "100"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 500 {
		size = 100
	}
	return size, (page - 1) * size
}

// parseStage accepts "3", "L3" or "l3".
func parseStage(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 1 && (s[0] == 'L' || s[0] == 'l') {
		s = s[1:]
	}
	order, err := strconv.Atoi(s)
	if err != nil || !models.ValidStage(order) {
		return 0, false
	}
	return order, true
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindInvalidTransition, services.KindAlreadyConverted, services.KindValidation:
		return http.StatusBadRequest
	case services.KindIncompleteData:
		return http.StatusUnprocessableEntity
	case services.KindLocked, services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes a service error with its kind, or a bare 500 for
// anything unexpected.
func respondError(c *gin.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		c.JSON(statusForKind(se.Kind), ErrorResponse{Error: se.Message, Kind: string(se.Kind), Details: se.Details})
		return
	}
	_ = c.Error(err)
	logrus.WithFields(logrus.Fields{
		"path":       c.Request.URL.Path,
		"request_id": c.GetString("request_id"),
	}).WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(services.KindValidation)})
}
