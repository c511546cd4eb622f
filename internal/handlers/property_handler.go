package handlers

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farellandr/homerental/internal/entitlement"
	"github.com/farellandr/homerental/internal/helpers"
	"github.com/farellandr/homerental/internal/middleware"
	"github.com/farellandr/homerental/internal/models"
	"github.com/farellandr/homerental/internal/services"
)

type PropertyRequest struct {
	Title            string            `json:"title" binding:"required,max=200"`
	AdTitle          *string           `json:"ad_title"`
	Description      string            `json:"description" binding:"required"`
	Price            decimal.Decimal   `json:"price"`
	Location         string            `json:"location" binding:"required"`
	PropertyType     string            `json:"property_type" binding:"required"`
	BHK              int               `json:"bhk" binding:"required,min=1"`
	Bathrooms        int               `json:"bathrooms" binding:"required,min=1"`
	Furnishing       models.Furnishing `json:"furnishing" binding:"required"`
	SuperBuiltArea   decimal.Decimal   `json:"super_built_area"`
	Facing           models.Facing     `json:"facing" binding:"required"`
	BuiltYear        *int              `json:"built_year"`
	BachelorsAllowed bool              `json:"bachelors_allowed"`
	TotalFloors      int               `json:"total_floors" binding:"min=0"`
	Amenities        []string          `json:"amenities"`
	PlanType         string            `json:"plan_type"`
}

func (req *PropertyRequest) input() (services.ListingInput, error) {
	in := services.ListingInput{
		Title:            req.Title,
		AdTitle:          req.AdTitle,
		Description:      req.Description,
		Price:            req.Price,
		Location:         req.Location,
		PropertyType:     req.PropertyType,
		BHK:              req.BHK,
		Bathrooms:        req.Bathrooms,
		Furnishing:       req.Furnishing,
		SuperBuiltArea:   req.SuperBuiltArea,
		Facing:           req.Facing,
		BuiltYear:        req.BuiltYear,
		BachelorsAllowed: req.BachelorsAllowed,
		TotalFloors:      req.TotalFloors,
		Amenities:        req.Amenities,
	}
	if req.PlanType != "" {
		plan, err := entitlement.ParsePlan(req.PlanType)
		if err != nil {
			return in, err
		}
		in.Plan = plan
	}
	return in, nil
}

func CreateProperty(c *gin.Context) {
	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}
	in, err := req.input()
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid plan type.")
		return
	}

	property, err := svc.Listings.Create(c.Request.Context(), principal, in)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Property created. Pay for a plan to submit it for approval.",
		"property": property,
	})
}

func GetProperty(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	svc, ok := getServices(c)
	if !ok {
		return
	}

	property, err := svc.Listings.Get(c.Request.Context(), middleware.Viewer(c), id)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

func UpdateProperty(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}
	in, err := req.input()
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid plan type.")
		return
	}

	property, err := svc.Listings.Update(c.Request.Context(), principal, id, in)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Property updated successfully.",
		"property": property,
	})
}

func DeleteProperty(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	if err := svc.Listings.Delete(c.Request.Context(), principal, id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Property deleted successfully."})
}

func SearchProperties(c *gin.Context) {
	svc, ok := getServices(c)
	if !ok {
		return
	}

	filter := services.SearchFilter{
		Location:     c.Query("location"),
		PropertyType: c.Query("property_type"),
		Furnishing:   models.Furnishing(c.Query("furnishing")),
	}
	if raw := c.Query("bhk"); raw != "" {
		bhk, err := helpers.StringToInt(raw)
		if err != nil || bhk < 1 {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid bhk.")
			return
		}
		filter.BHK = bhk
	}
	for param, dest := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid "+param+".")
			return
		}
		*dest = &value
	}
	if filter.Furnishing != "" && !filter.Furnishing.Valid() {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid furnishing.")
		return
	}

	page, limit := helpers.ParsePagination(c)
	result, err := svc.Listings.Search(c.Request.Context(), filter, page, limit)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func ListMyProperties(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	listings, err := svc.Listings.ListForOwner(c.Request.Context(), principal)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"properties": listings})
}

type StatusRequest struct {
	Status models.PropertyStatus `json:"status" binding:"required"`
}

func SetPropertyStatus(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	property, err := svc.Listings.SetStatus(c.Request.Context(), principal, id, req.Status)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

func UploadPropertyImage(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}
	store := middleware.GetImageStore(c)
	if store == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Image store not found.")
		return
	}

	ctx := c.Request.Context()
	if _, err := svc.Listings.GetManaged(ctx, principal, id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Image file is required.")
		return
	}
	file, filename, err := helpers.OpenUpload(fileHeader)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	ref, err := store.Save(ctx, filename, file)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to store image.")
		return
	}
	image, err := svc.Listings.AttachImage(ctx, principal, id, ref)
	if err != nil {
		store.Remove(ctx, ref)
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, image)
}

func DeletePropertyImage(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	imageID, ok := helpers.ParseUUIDParam(c, "imageId")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	if err := svc.Listings.DeleteImage(c.Request.Context(), principal, id, imageID); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully."})
}

// GetPropertyImage streams an image of a listing the caller may see.
func GetPropertyImage(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	imageID, ok := helpers.ParseUUIDParam(c, "imageId")
	if !ok {
		return
	}
	svc, ok := getServices(c)
	if !ok {
		return
	}
	store := middleware.GetImageStore(c)
	if store == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Image store not found.")
		return
	}

	property, err := svc.Listings.Get(c.Request.Context(), middleware.Viewer(c), id)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}
	var ref string
	for _, image := range property.Images {
		if image.ID == imageID {
			ref = image.BlobRef
		}
	}
	if ref == "" {
		helpers.RespondWithError(c, http.StatusNotFound, "Image not found.")
		return
	}

	blob, err := store.Open(c.Request.Context(), ref)
	if err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Image not found.")
		return
	}
	defer blob.Close()

	contentType := mime.TypeByExtension(filepath.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, blob, nil)
}

func GetPropertyQR(c *gin.Context) {
	id, ok := helpers.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}

	if _, err := svc.Listings.GetManaged(c.Request.Context(), principal, id); err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		baseURL = scheme + "://" + c.Request.Host
	}
	qrImage, err := helpers.ListingQRCode(baseURL, id)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

func ListPlans(c *gin.Context) {
	plans := make([]gin.H, 0, len(entitlement.Plans()))
	for _, plan := range entitlement.Plans() {
		plans = append(plans, gin.H{
			"key":           plan,
			"label":         plan.Label(),
			"fee":           plan.Fee(),
			"duration_days": int(plan.Duration().Hours() / 24),
			"max_active":    plan.Cap(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// CheckEntitlement lets an owner ask whether one more listing on a plan
// could go live before paying for it.
func CheckEntitlement(c *gin.Context) {
	principal, svc, ok := authenticated(c)
	if !ok {
		return
	}
	plan, err := entitlement.ParsePlan(c.DefaultQuery("plan", string(entitlement.Basic)))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid plan type.")
		return
	}
	excludeID := uuid.Nil
	if raw := c.Query("property_id"); raw != "" {
		if excludeID, err = uuid.Parse(raw); err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid property_id.")
			return
		}
	}

	decision, err := svc.Entitlements.CanActivate(c.Request.Context(), principal.ID, plan, excludeID)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"allowed":      decision.Allowed,
		"reason":       decision.Reason,
		"tier":         decision.Tier,
		"cap":          decision.Cap,
		"active_count": decision.ActiveCount,
	})
}
