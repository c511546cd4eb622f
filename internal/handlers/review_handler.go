package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/homerental/internal/helpers"
	"github.com/farellandr/homerental/internal/middleware"
)

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

func UpsertReview(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Rating must be between 1 and 5.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	review, err := svc.Reviews.Upsert(c.Request.Context(), principal, id, req.Rating, req.Comment)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func DeleteReview(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	if err := svc.Reviews.Delete(c.Request.Context(), principal, id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully."})
}

func ListReviews(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	svc, ok := getServices(c)
	if !ok {
		return
	}

	summary, err := svc.Reviews.List(c.Request.Context(), middleware.Viewer(c), id)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func AddToWishlist(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	if err := svc.Wishlist.Add(c.Request.Context(), principal, id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Added to wishlist."})
}

func RemoveFromWishlist(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	if err := svc.Wishlist.Remove(c.Request.Context(), principal, id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from wishlist."})
}

func ListWishlist(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	entries, err := svc.Wishlist.List(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wishlist": entries})
}
