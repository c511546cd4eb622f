package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/farellandr/homerental/config"
	"github.com/farellandr/homerental/internal/handlers"
	"github.com/farellandr/homerental/internal/middleware"
	"github.com/farellandr/homerental/internal/realtime"
	"github.com/farellandr/homerental/internal/services"
	"github.com/farellandr/homerental/internal/storage"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := config.InitGateway(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %v", err)
	}

	store, releaseStore, err := config.InitImageStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %v", err)
	}
	defer releaseStore()

	janitor := storage.NewMediaJanitor(store, 4)
	defer janitor.Close()

	hub := realtime.NewHub()
	go hub.KeepAlive(30 * time.Second)
	defer hub.Close()

	svc := services.New(services.Deps{
		DB:             db,
		Gateway:        gw,
		Cache:          config.InitListingCache(ctx, cfg),
		Media:          janitor,
		Notifier:       hub,
		Currency:       cfg.Currency,
		GatewayTimeout: cfg.PaymentTimeout,
		JWTSecret:      cfg.JWTSecret,
	})

	if err := svc.Users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to seed admin: %v", err)
	}

	scheduler, err := startSweeper(svc.Sweeper, cfg.SweepSchedule)
	if err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %v", err)
	}
	if scheduler != nil {
		defer func() { <-scheduler.Stop().Done() }()
	}

	r := gin.Default()
	setupRoutes(r, svc, store, hub, cfg.JWTSecret)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("listening on :%s", cfg.Port)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startSweeper runs the plan expiry sweep on a cron schedule. An empty
// schedule disables it.
func startSweeper(sweeper *services.ExpirySweeper, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		log.Printf("expiry sweep schedule is empty; sweeper disabled")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := sweeper.Sweep(context.Background()); err != nil {
			log.Printf("expiry sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func setupRoutes(r *gin.Engine, svc *services.Services, store storage.ImageStore, hub *realtime.Hub, jwtSecret string) {
	r.Use(middleware.ServicesMiddleware(svc))
	r.Use(middleware.ImageStoreMiddleware(store))
	r.Use(middleware.HubMiddleware(hub))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)
		public.GET("/plans", handlers.ListPlans)
		public.POST("/payments/webhook", handlers.PaymentWebhook)

		propertyPublic := public.Group("/properties")
		propertyPublic.Use(middleware.OptionalAuth(jwtSecret))
		{
			propertyPublic.GET("", handlers.SearchProperties)
			propertyPublic.GET("/:id", handlers.GetProperty)
			propertyPublic.GET("/:id/images/:imageId", handlers.GetPropertyImage)
			propertyPublic.GET("/:id/reviews", handlers.ListReviews)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware(jwtSecret))
	{
		protected.GET("/me", handlers.GetProfile)
		protected.GET("/me/properties", handlers.ListMyProperties)
		protected.GET("/me/entitlement", handlers.CheckEntitlement)
		protected.GET("/ws", handlers.ConnectWebSocket)

		propertyProtected := protected.Group("/properties")
		{
			propertyProtected.POST("", handlers.CreateProperty)
			propertyProtected.PUT("/:id", handlers.UpdateProperty)
			propertyProtected.DELETE("/:id", handlers.DeleteProperty)
			propertyProtected.PATCH("/:id/status", handlers.SetPropertyStatus)
			propertyProtected.GET("/:id/qr", handlers.GetPropertyQR)
			propertyProtected.POST("/:id/images", handlers.UploadPropertyImage)
			propertyProtected.DELETE("/:id/images/:imageId", handlers.DeletePropertyImage)
			propertyProtected.POST("/:id/payments", handlers.CreatePaymentIntent)
			propertyProtected.GET("/:id/payment", handlers.GetPropertyPayment)
			propertyProtected.POST("/:id/applications", handlers.ApplyForProperty)
			propertyProtected.GET("/:id/applications", handlers.ListPropertyApplications)
			propertyProtected.POST("/:id/maintenance", handlers.CreateMaintenanceRequest)
			propertyProtected.POST("/:id/conversations", handlers.StartConversation)
			propertyProtected.PUT("/:id/review", handlers.UpsertReview)
			propertyProtected.DELETE("/:id/review", handlers.DeleteReview)
		}

		protected.POST("/payments/verify", handlers.VerifyPayment)

		protected.GET("/applications", handlers.ListMyApplications)
		protected.POST("/applications/:id/approve", handlers.DecideApplication(true))
		protected.POST("/applications/:id/reject", handlers.DecideApplication(false))

		protected.GET("/leases", handlers.ListLeases)
		protected.POST("/leases", handlers.CreateLease)

		protected.GET("/maintenance", handlers.ListMaintenanceRequests)
		protected.PATCH("/maintenance/:id", handlers.AdvanceMaintenanceRequest)

		protected.GET("/conversations", handlers.ListConversations)
		protected.GET("/conversations/:id/messages", handlers.GetConversationMessages)
		protected.POST("/conversations/:id/messages", handlers.SendMessage)

		protected.GET("/wishlist", handlers.ListWishlist)
		protected.PUT("/wishlist/:id", handlers.AddToWishlist)
		protected.DELETE("/wishlist/:id", handlers.RemoveFromWishlist)

		admin := protected.Group("/admin")
		{
			admin.GET("/properties/pending", handlers.ListPendingProperties)
			admin.POST("/properties/:id/approve", handlers.ApproveProperty)
			admin.POST("/properties/:id/reject", handlers.RejectProperty)
			admin.DELETE("/users/:id", handlers.DeleteUser)
			admin.POST("/sweep", handlers.RunSweep)
		}
	}
}
