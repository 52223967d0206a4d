package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App        AppConfig
	DB         DBConfig
	JWT        JWTConfig
	HTTP       HTTPConfig
	Redis      RedisConfig
	Allocation AllocationConfig
	RabbitMQ   RabbitMQConfig
	Outbox     OutboxConfig
	Orders     OrdersConfig
	Storage    StorageConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// JWTConfig identidad del operador. Secret vacío desactiva la verificación.
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig almacén de borradores. URL vacía usa el almacén en memoria.
type RedisConfig struct {
	URL      string
	DraftTTL time.Duration
}

// AllocationConfig política de asignación por lotes.
type AllocationConfig struct {
	MaxLots      int
	AllowPartial bool
}

// RabbitMQConfig destino de los eventos. URL vacía solo registra los eventos en el log.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// OutboxConfig despachador de eventos.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// OrdersConfig servicio de órdenes de compra y producción. BaseURL vacía usa un libro estático vacío.
type OrdersConfig struct {
	BaseURL string
	Timeout time.Duration
}

// StorageConfig verificación de evidencia en S3. Bucket vacío acepta cualquier referencia.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "lotledger"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "lotledger"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 10),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret: getString(v, "JWT_SECRET", ""),
			Issuer: getString(v, "JWT_ISSUER", "lotledger"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			URL:      getString(v, "REDIS_URL", ""),
			DraftTTL: getDuration(v, "DRAFT_TTL", 24*time.Hour),
		},
		Allocation: AllocationConfig{
			MaxLots:      getInt(v, "ALLOCATION_MAX_LOTS", 3),
			AllowPartial: getBool(v, "ALLOCATION_ALLOW_PARTIAL", false),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getString(v, "RABBITMQ_URL", ""),
			Exchange: getString(v, "RABBITMQ_EXCHANGE", "inventory.events"),
		},
		Outbox: OutboxConfig{
			PollInterval: getDuration(v, "OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getInt(v, "OUTBOX_BATCH_SIZE", 50),
			MaxAttempts:  getInt(v, "OUTBOX_MAX_ATTEMPTS", 10),
		},
		Orders: OrdersConfig{
			BaseURL: getString(v, "ORDERS_BASE_URL", ""),
			Timeout: getDuration(v, "ORDERS_TIMEOUT", 5*time.Second),
		},
		Storage: StorageConfig{
			Bucket:    getString(v, "STORAGE_BUCKET", ""),
			Region:    getString(v, "STORAGE_REGION", "us-east-1"),
			Endpoint:  getString(v, "STORAGE_ENDPOINT", ""),
			AccessKey: getString(v, "STORAGE_ACCESS_KEY", ""),
			SecretKey: getString(v, "STORAGE_SECRET_KEY", ""),
		},
	}

	if cfg.Allocation.MaxLots <= 0 {
		return nil, fmt.Errorf("config: ALLOCATION_MAX_LOTS debe ser mayor que cero")
	}
	if cfg.Redis.DraftTTL <= 0 {
		return nil, fmt.Errorf("config: DRAFT_TTL debe ser positivo")
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return b
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return d
}
