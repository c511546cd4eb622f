package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/helpers"
)

func ListPendingProperties(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	page, limit := helpers.ParsePagination(c)
	result, err := svc.Moderation.ListPending(c.Request.Context(), principal, page, limit)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func ApproveProperty(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	property, err := svc.Moderation.Approve(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Property approved.",
		"property": property,
	})
}

func RejectProperty(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	if err := svc.Moderation.Reject(c.Request.Context(), principal, id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Property rejected and removed."})
}

func DeleteUser(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	if err := svc.Users.Delete(c.Request.Context(), principal, id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully."})
}

// RunSweep triggers the plan expiry sweep on demand.
func RunSweep(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}
	if !auth.IsAdmin(principal) {
		helpers.RespondWithError(c, http.StatusForbidden, "Access denied.")
		return
	}

	swept, err := svc.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": swept})
}
