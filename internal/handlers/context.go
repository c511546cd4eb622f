package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/helpers"
	"github.com/farellandr/homerental/internal/middleware"
	"github.com/farellandr/homerental/internal/services"
)

func getServices(c *gin.Context) (*services.Services, bool) {
	svc := middleware.GetServices(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not found.")
		return nil, false
	}
	return svc, true
}

// authenticated returns the caller and the services for a protected route.
func authenticated(c *gin.Context) (auth.Principal, *services.Services, bool) {
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return auth.Principal{}, nil, false
	}
	svc, ok := getServices(c)
	return principal, svc, ok
}
