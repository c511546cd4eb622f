package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xendit/xendit-go/v6"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/farellandr/homerental/internal/cache"
	"github.com/farellandr/homerental/internal/gateway"
	"github.com/farellandr/homerental/internal/models"
	"github.com/farellandr/homerental/internal/storage"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	Port          string
	JWTSecret     string
	PublicBaseURL string

	PaymentProvider string
	Currency        string
	PaymentTimeout  time.Duration
	Razorpay        gateway.RazorpayConfig
	Xendit          gateway.XenditConfig

	RedisAddr       string
	RedisPassword   string
	ListingCacheTTL time.Duration

	ImageStore    string
	UploadPath    string
	MongoURI      string
	MongoDatabase string
	SweepSchedule string
	AdminEmail    string
	AdminPassword string
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func LoadConfig() (*Config, error) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_NAME", "JWT_SECRET"} {
		if os.Getenv(key) == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}

	paymentTimeout, err := getDuration("PAYMENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getDuration("LISTING_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		Port:          getEnv("PORT", "8080"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),

		PaymentProvider: strings.ToLower(getEnv("PAYMENT_PROVIDER", "razorpay")),
		Currency:        getEnv("PAYMENT_CURRENCY", "INR"),
		PaymentTimeout:  paymentTimeout,
		Razorpay: gateway.RazorpayConfig{
			KeyID:         os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
			Timeout:       paymentTimeout,
		},
		Xendit: gateway.XenditConfig{
			SecretKey:     os.Getenv("XENDIT_SECRET_KEY"),
			CallbackToken: os.Getenv("XENDIT_CALLBACK_TOKEN"),
			Timeout:       paymentTimeout,
		},

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		ListingCacheTTL: cacheTTL,

		ImageStore:    strings.ToLower(getEnv("IMAGE_STORE", "disk")),
		UploadPath:    getEnv("UPLOAD_PATH", "./uploads/"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "homerental"),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 1h"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}, nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, err
	}

	return db, nil
}

// InitGateway builds the configured payment gateway. Missing credentials are
// not an error here; the gateway reports them when payments are attempted.
func InitGateway(cfg *Config) (gateway.Gateway, error) {
	switch cfg.PaymentProvider {
	case "razorpay":
		return gateway.NewRazorpayGateway(cfg.Razorpay), nil
	case "xendit":
		var client *xendit.APIClient
		if cfg.Xendit.SecretKey != "" {
			client = xendit.NewClient(cfg.Xendit.SecretKey)
		}
		return gateway.NewXenditGateway(cfg.Xendit, client), nil
	default:
		return nil, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.PaymentProvider)
	}
}

// InitListingCache connects to Redis when REDIS_ADDR is set and falls back to
// no caching otherwise or when Redis is unreachable.
func InitListingCache(ctx context.Context, cfg *Config) cache.ListingCache {
	if cfg.RedisAddr == "" {
		return cache.Noop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis at %s unavailable, listing cache disabled: %v", cfg.RedisAddr, err)
		client.Close()
		return cache.Noop{}
	}
	return cache.NewRedisListingCache(client, cfg.ListingCacheTTL)
}

// InitImageStore returns the blob store and a function releasing it.
func InitImageStore(ctx context.Context, cfg *Config) (storage.ImageStore, func(), error) {
	switch cfg.ImageStore {
	case "disk":
		return storage.NewDiskStore(cfg.UploadPath), func() {}, nil
	case "gridfs":
		if cfg.MongoURI == "" {
			return nil, nil, fmt.Errorf("MONGODB_URI is required for IMAGE_STORE=gridfs")
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(ctx)
			return nil, nil, err
		}
		release := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("mongo disconnect: %v", err)
			}
		}
		return storage.NewGridFSStore(client, cfg.MongoDatabase), release, nil
	default:
		return nil, nil, fmt.Errorf("unknown IMAGE_STORE %q", cfg.ImageStore)
	}
}
