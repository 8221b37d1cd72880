package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/replenishment-go/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Storage  StorageConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	UploadDir string
	DataDir   string
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	PlanTTLSeconds int
}

// EngineConfig holds the planning defaults applied to any (store, SKU)
// unit that has no parameter row of its own.
type EngineConfig struct {
	HorizonDays        int
	TargetCoverageDays int
	ServiceLevelZ      float64
	CasePackSize       float64
	MinOrderQty        float64
	MaxOrderQty        float64
	TransitDays        int
	ShelfLifeByCat     map[string]int
	DefaultShelfLife   int
	MarkdownTiers      []domain.MarkdownTier
	MinMarkdownQty     float64
	PriceElasticity    float64
	WorkerCount        int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type DriveConfig struct {
	Enabled         bool
	CredentialsJSON string
	FolderID        string
	PollSeconds     int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "replenishment")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
		viper.SetDefault("APP_DATA_DIR", "./data/output")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_PLAN_TTL_SECONDS", 300)

		viper.SetDefault("ENGINE_HORIZON_DAYS", 7)
		viper.SetDefault("ENGINE_COVERAGE_DAYS", 7)
		viper.SetDefault("ENGINE_SERVICE_LEVEL_Z", 1.65)
		viper.SetDefault("ENGINE_CASE_PACK_SIZE", 1.0)
		viper.SetDefault("ENGINE_MIN_ORDER_QTY", 1.0)
		viper.SetDefault("ENGINE_MAX_ORDER_QTY", 1000.0)
		viper.SetDefault("ENGINE_TRANSIT_DAYS", 1)
		viper.SetDefault("ENGINE_SHELF_LIFE_DAYS", "fruits:5,vegetables:7,bakery:3,chilled:7")
		viper.SetDefault("ENGINE_DEFAULT_SHELF_LIFE_DAYS", 5)
		viper.SetDefault("ENGINE_MARKDOWN_TIERS", "1:50:0.8,2:35:0.7,3:20:0.6")
		viper.SetDefault("ENGINE_MIN_MARKDOWN_QTY", 5.0)
		viper.SetDefault("ENGINE_PRICE_ELASTICITY", -2.0)
		viper.SetDefault("ENGINE_WORKER_COUNT", 8)

		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "replenishment-plans")
		viper.SetDefault("STORAGE_USE_SSL", true)

		viper.SetDefault("DRIVE_ENABLED", false)
		viper.SetDefault("DRIVE_CREDENTIALS_JSON", "")
		viper.SetDefault("DRIVE_FOLDER_ID", "")
		viper.SetDefault("DRIVE_POLL_SECONDS", 300)

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		tiers, err := ParseMarkdownTiers(viper.GetString("ENGINE_MARKDOWN_TIERS"))
		if err != nil {
			log.Fatalf("Invalid ENGINE_MARKDOWN_TIERS: %v", err)
		}
		shelfLife, err := ParseShelfLife(viper.GetString("ENGINE_SHELF_LIFE_DAYS"))
		if err != nil {
			log.Fatalf("Invalid ENGINE_SHELF_LIFE_DAYS: %v", err)
		}

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			App: AppConfig{
				UploadDir: viper.GetString("APP_UPLOAD_DIR"),
				DataDir:   viper.GetString("APP_DATA_DIR"),
			},
			Cache: CacheConfig{
				Enabled:        viper.GetBool("CACHE_ENABLED"),
				RedisURL:       viper.GetString("REDIS_URL"),
				RedisHost:      viper.GetString("REDIS_HOST"),
				RedisPort:      viper.GetString("REDIS_PORT"),
				RedisPassword:  viper.GetString("REDIS_PASSWORD"),
				RedisDB:        viper.GetInt("REDIS_DB"),
				PlanTTLSeconds: viper.GetInt("CACHE_PLAN_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				HorizonDays:        viper.GetInt("ENGINE_HORIZON_DAYS"),
				TargetCoverageDays: viper.GetInt("ENGINE_COVERAGE_DAYS"),
				ServiceLevelZ:      viper.GetFloat64("ENGINE_SERVICE_LEVEL_Z"),
				CasePackSize:       viper.GetFloat64("ENGINE_CASE_PACK_SIZE"),
				MinOrderQty:        viper.GetFloat64("ENGINE_MIN_ORDER_QTY"),
				MaxOrderQty:        viper.GetFloat64("ENGINE_MAX_ORDER_QTY"),
				TransitDays:        viper.GetInt("ENGINE_TRANSIT_DAYS"),
				ShelfLifeByCat:     shelfLife,
				DefaultShelfLife:   viper.GetInt("ENGINE_DEFAULT_SHELF_LIFE_DAYS"),
				MarkdownTiers:      tiers,
				MinMarkdownQty:     viper.GetFloat64("ENGINE_MIN_MARKDOWN_QTY"),
				PriceElasticity:    viper.GetFloat64("ENGINE_PRICE_ELASTICITY"),
				WorkerCount:        viper.GetInt("ENGINE_WORKER_COUNT"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Drive: DriveConfig{
				Enabled:         viper.GetBool("DRIVE_ENABLED"),
				CredentialsJSON: viper.GetString("DRIVE_CREDENTIALS_JSON"),
				FolderID:        viper.GetString("DRIVE_FOLDER_ID"),
				PollSeconds:     viper.GetInt("DRIVE_POLL_SECONDS"),
			},
		}
	})

	return instance
}

// ShelfLifeFor returns the configured shelf life for a category, falling
// back to the default when the category is unknown.
func (c *EngineConfig) ShelfLifeFor(category string) int {
	if days, ok := c.ShelfLifeByCat[strings.ToLower(category)]; ok {
		return days
	}
	return c.DefaultShelfLife
}

// ParseMarkdownTiers parses a "days:discount:sellthrough" list such as
// "1:50:0.8,2:35:0.7,3:20:0.6". Tiers are returned sorted by days because
// the policy requires strictly ascending thresholds.
func ParseMarkdownTiers(s string) ([]domain.MarkdownTier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var tiers []domain.MarkdownTier
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("tier %q: want days:discount:sellthrough", part)
		}
		days, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("tier %q: bad days: %w", part, err)
		}
		discount, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("tier %q: bad discount: %w", part, err)
		}
		sellthrough, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("tier %q: bad sellthrough: %w", part, err)
		}
		tiers = append(tiers, domain.MarkdownTier{
			DaysUntilExpiry:     days,
			DiscountPercent:     discount,
			ExpectedSellthrough: sellthrough,
		})
	}
	for i := 1; i < len(tiers); i++ {
		for j := i; j > 0 && tiers[j].DaysUntilExpiry < tiers[j-1].DaysUntilExpiry; j-- {
			tiers[j], tiers[j-1] = tiers[j-1], tiers[j]
		}
	}
	return tiers, nil
}

// ParseShelfLife parses a "category:days" list such as
// "fruits:5,vegetables:7". Category keys are lowercased.
func ParseShelfLife(s string) (map[string]int, error) {
	s = strings.TrimSpace(s)
	out := make(map[string]int)
	if s == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("shelf life %q: want category:days", part)
		}
		days, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("shelf life %q: bad days: %w", part, err)
		}
		out[strings.ToLower(strings.TrimSpace(fields[0]))] = days
	}
	return out, nil
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
