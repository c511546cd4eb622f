package helpers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxPageLimit = 50

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParsePagination reads ?page and ?limit, falling back to page 1 of 10 and
// capping the limit.
func ParsePagination(c *gin.Context) (page, limit int) {
	page, err := StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = StringToInt(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// ParseUUIDParam reads a path parameter as a uuid and answers 400 itself when
// it is malformed.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid "+name+".")
		return uuid.Nil, false
	}
	return id, true
}
