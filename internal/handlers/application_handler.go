package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farellandr/homerental/internal/helpers"
	"github.com/farellandr/homerental/internal/models"
	"github.com/farellandr/homerental/internal/services"
)

type ApplicationRequest struct {
	Message string `json:"message" binding:"max=2000"`
}

func ApplyForProperty(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	application, err := svc.Applications.Apply(c.Request.Context(), principal, id, req.Message)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, application)
}

func ListMyApplications(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	applications, err := svc.Applications.ListMine(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": applications})
}

func ListPropertyApplications(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	applications, err := svc.Applications.ListForProperty(c.Request.Context(), principal, id)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": applications})
}

// DecideApplication builds the approve and reject handlers.
func DecideApplication(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := helpers.ParseUUIDParam(c, "id")
		if !ok {
			return
		}
		principal, svc, ok := authenticated(c)
		if !ok {
			return
		}

		application, err := svc.Applications.Decide(c.Request.Context(), principal, id, approve)
		if err != nil {
			helpers.RespondWithAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, application)
	}
}

type LeaseRequest struct {
	PropertyID  uuid.UUID       `json:"property_id" binding:"required"`
	TenantID    uuid.UUID       `json:"tenant_id" binding:"required"`
	StartDate   time.Time       `json:"start_date" binding:"required"`
	EndDate     time.Time       `json:"end_date" binding:"required"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
}

func CreateLease(c *gin.Context) {
	var req LeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	lease, err := svc.Leases.Create(c.Request.Context(), principal, services.LeaseInput{
		PropertyID:  req.PropertyID,
		TenantID:    req.TenantID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MonthlyRent: req.MonthlyRent,
	})
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lease)
}

func ListLeases(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	leases, err := svc.Leases.List(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leases": leases})
}

type MaintenanceRequest struct {
	Title       string                     `json:"title" binding:"required,max=200"`
	Description string                     `json:"description" binding:"required"`
	Priority    models.MaintenancePriority `json:"priority"`
}

func CreateMaintenanceRequest(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	request, err := svc.Maintenance.Create(c.Request.Context(), principal, id, services.MaintenanceInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

type MaintenanceStatusRequest struct {
	Status models.MaintenanceStatus `json:"status" binding:"required"`
}

func AdvanceMaintenanceRequest(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req MaintenanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	request, err := svc.Maintenance.Advance(c.Request.Context(), principal, id, req.Status)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func ListMaintenanceRequests(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	requests, err := svc.Maintenance.List(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"maintenance_requests": requests})
}
