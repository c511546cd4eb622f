package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/farellandr/homerental/internal/realtime"
	"github.com/farellandr/homerental/internal/services"
	"github.com/farellandr/homerental/internal/storage"
)

const (
	servicesKey = "services"
	storeKey    = "image_store"
	hubKey      = "hub"
)

func ServicesMiddleware(svc *services.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(servicesKey, svc)
		c.Next()
	}
}

func GetServices(c *gin.Context) *services.Services {
	svc, exists := c.Get(servicesKey)
	if !exists {
		return nil
	}
	return svc.(*services.Services)
}

func ImageStoreMiddleware(store storage.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(storeKey, store)
		c.Next()
	}
}

func GetImageStore(c *gin.Context) storage.ImageStore {
	store, exists := c.Get(storeKey)
	if !exists {
		return nil
	}
	return store.(storage.ImageStore)
}

func HubMiddleware(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(hubKey, hub)
		c.Next()
	}
}

func GetHub(c *gin.Context) *realtime.Hub {
	hub, exists := c.Get(hubKey)
	if !exists {
		return nil
	}
	return hub.(*realtime.Hub)
}
