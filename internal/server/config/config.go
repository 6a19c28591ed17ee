// Package config отвечает за:
// - чтение server.yaml
// - подстановку переменных окружения вида ${NOT_MY_KEY}
// - проставление дефолтов
// - валидацию (чтобы сервер не стартовал с дырявыми настройками)
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config - корневая структура всего конфига сервера.
type Config struct {
	Env           string              `yaml:"env"` // dev|stage|prod
	Server        ServerConfig        `yaml:"server"`
	TLS           TLSConfig           `yaml:"tls"`
	DB            DBConfig            `yaml:"db"`
	Migrations    MigrationsConfig    `yaml:"migrations"`
	Auth          AuthConfig          `yaml:"auth"`
	Password      PasswordConfig      `yaml:"password"`
	Security      SecurityConfig      `yaml:"security"`
	JWKS          JWKSConfig          `yaml:"jwks"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig - настройки HTTP-сервера.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	TrustProxy        bool          `yaml:"trust_proxy"` // доверять ли заголовкам X-Forwarded-*
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"` // время на graceful shutdown
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`   // лимит размера тела запроса
}

// TLSConfig - настройки HTTPS.
type TLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	MinVersion string `yaml:"min_version"` // "1.2"|"1.3"
}

// DBConfig - настройки подключения к базе данных.
type DBConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// MigrationsConfig - настройки миграций БД.
type MigrationsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuthConfig - параметры выдачи токенов.
type AuthConfig struct {
	Issuer         string        `yaml:"issuer"`
	TokenTTL       time.Duration `yaml:"token_ttl"`       // срок жизни валидного токена
	ExpiredOffset  time.Duration `yaml:"expired_offset"`  // насколько в прошлом exp у просроченного
	DefaultSubject string        `yaml:"default_subject"` // sub, если клиент не передал логин
	Keys           KeysConfig    `yaml:"keys"`
}

// KeysConfig - как создаём, храним и ротируем ключи подписи.
type KeysConfig struct {
	Algorithm     string        `yaml:"algorithm"` // только RS256
	Bits          int           `yaml:"bits"`
	RotateEvery   time.Duration `yaml:"rotate_every"`   // 0 - ротация выключена
	EncryptionKey string        `yaml:"encryption_key"` // может содержать ${NOT_MY_KEY}
}

// PasswordConfig - настройки хэширования паролей пользователей.
type PasswordConfig struct {
	Argon2 Argon2Config `yaml:"argon2"`
}

// Argon2Config - параметры argon2id.
type Argon2Config struct {
	Time      uint32 `yaml:"time"`
	MemoryKiB uint32 `yaml:"memory_kib"`
	Threads   uint8  `yaml:"threads"`
	KeyLen    uint32 `yaml:"key_len"`
	SaltLen   uint32 `yaml:"salt_len"`
}

// SecurityConfig - ограничения/защита.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig - fixed window лимит на выдачу токенов.
type RateLimitConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Window     time.Duration `yaml:"window"`
	Limit      int           `yaml:"limit"`
	Key        string        `yaml:"key"`         // global|ip
	SweepEvery time.Duration `yaml:"sweep_every"` // как часто чистить старые окна
}

// JWKSConfig - кэш отрендеренного JWKS документа.
type JWKSConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// LogConfig - настройки логирования (zap).
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
	Dir    string `yaml:"dir"`
}

// ObservabilityConfig - метрики.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load читает YAML, подставляет переменные окружения вида ${VAR},
// затем парсит в структуру, проставляет дефолты и валидирует.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать конфиг: %w", err)
	}

	raw = []byte(ExpandEnvStrict(string(raw)))

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось распарсить yaml: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envRe = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)

// ExpandEnvStrict заменяет ${VAR} на значение из окружения.
// Если переменная не задана - оставляем ${VAR} как есть,
// а потом Validate() упадёт с понятной ошибкой.
func ExpandEnvStrict(s string) string {
	return envRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := envRe.FindStringSubmatch(m)
		if len(sub) != 2 {
			return m
		}
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		return m
	})
}

// ApplyDefaults - дефолтные значения, если в yaml поле не задано.
func ApplyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Migrations.Path == "" {
		cfg.Migrations.Path = "file://migrations/postgres"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
	if cfg.Auth.ExpiredOffset == 0 {
		cfg.Auth.ExpiredOffset = time.Hour
	}
	if cfg.Auth.DefaultSubject == "" {
		cfg.Auth.DefaultSubject = "sampleUser"
	}
	if cfg.Auth.Keys.Algorithm == "" {
		cfg.Auth.Keys.Algorithm = "RS256"
	}
	if cfg.Auth.Keys.Bits == 0 {
		cfg.Auth.Keys.Bits = 2048
	}
	if cfg.Password.Argon2.Time == 0 {
		cfg.Password.Argon2 = Argon2Config{Time: 1, MemoryKiB: 64 * 1024, Threads: 2, KeyLen: 32, SaltLen: 16}
	}
	if cfg.Security.RateLimit.Window == 0 {
		cfg.Security.RateLimit.Window = time.Second
	}
	if cfg.Security.RateLimit.Limit == 0 {
		cfg.Security.RateLimit.Limit = 10
	}
	if cfg.Security.RateLimit.Key == "" {
		cfg.Security.RateLimit.Key = "global"
	}
	if cfg.Security.RateLimit.SweepEvery == 0 {
		cfg.Security.RateLimit.SweepEvery = time.Minute
	}
	if cfg.JWKS.CacheTTL == 0 {
		cfg.JWKS.CacheTTL = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Observability.Metrics.Path == "" {
		cfg.Observability.Metrics.Path = "/metrics"
	}
}

// Validate проверяет, что конфиг заполнен корректно и безопасно.
// Если что-то не так - возвращаем ошибку и сервер НЕ стартует.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host обязателен")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port некорректен: %d", c.Server.Port)
	}

	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return errors.New("tls.cert_file и tls.key_file обязательны при tls.enabled=true")
		}
		if c.TLS.MinVersion == "1.0" || c.TLS.MinVersion == "1.1" {
			return fmt.Errorf("tls.min_version=%s небезопасен; используй 1.2 или 1.3", c.TLS.MinVersion)
		}
	}

	if c.DB.DSN == "" {
		return errors.New("db.dsn обязателен")
	}

	// Ключи
	alg := strings.ToUpper(strings.TrimSpace(c.Auth.Keys.Algorithm))
	if alg != "RS256" {
		return fmt.Errorf("auth.keys.algorithm должен быть RS256 (сейчас %q)", c.Auth.Keys.Algorithm)
	}
	if c.Auth.Keys.Bits < 2048 {
		return fmt.Errorf("auth.keys.bits слишком мал (%d); нужно >= 2048", c.Auth.Keys.Bits)
	}
	key := strings.TrimSpace(c.Auth.Keys.EncryptionKey)
	if key == "" {
		return errors.New("auth.keys.encryption_key обязателен (через ${NOT_MY_KEY} или прямо строкой)")
	}
	if strings.Contains(key, "${") && strings.Contains(key, "}") {
		return fmt.Errorf("auth.keys.encryption_key содержит неподставленную переменную: %q (нужно задать NOT_MY_KEY)", key)
	}
	if c.Auth.Keys.RotateEvery < 0 {
		return errors.New("auth.keys.rotate_every не может быть отрицательным")
	}
	if c.Auth.TokenTTL < time.Second {
		return fmt.Errorf("auth.token_ttl должен быть >= 1s (сейчас %s): exp считается в целых секундах", c.Auth.TokenTTL)
	}
	if c.Auth.ExpiredOffset <= 0 {
		return errors.New("auth.expired_offset должен быть > 0")
	}

	// Rate limit
	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.Window <= 0 {
			return errors.New("security.rate_limit.window должен быть > 0 при включённом rate_limit")
		}
		if c.Security.RateLimit.Limit <= 0 {
			return errors.New("security.rate_limit.limit должен быть > 0 при включённом rate_limit")
		}
		if c.Security.RateLimit.Key != "global" && c.Security.RateLimit.Key != "ip" {
			return fmt.Errorf("security.rate_limit.key должен быть global|ip (сейчас %q)", c.Security.RateLimit.Key)
		}
	}

	if c.Password.Argon2.Time == 0 || c.Password.Argon2.MemoryKiB == 0 || c.Password.Argon2.Threads == 0 {
		return errors.New("password.argon2 должен быть настроен")
	}

	return nil
}

// ApplyEnvOverrides даёт возможность переопределять
// некоторые настройки через переменные окружения без ${...} в yaml.
// Например SERVER_PORT=9090 переопределит server.port.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.DB.DSN = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Security.RateLimit.Limit = n
		}
	}
}
