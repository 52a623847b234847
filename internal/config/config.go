package config

import (
	"errors"
	"fmt"
	"os"

	"geauxclean/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Wizard     WizardConfig     `yaml:"wizard"`
	Notify     NotifyConfig     `yaml:"notify"`
	Exports    ExportConfig     `yaml:"exports"`
	Services   []models.Service `yaml:"services"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

// BackendConfig selects the hosted backend (mode=rest) or the sqlite-backed
// development backend (mode=local).
type BackendConfig struct {
	Mode      string `yaml:"mode"`
	BaseURL   string `yaml:"base_url"`
	AnonKey   string `yaml:"anon_key"`
	LocalPath string `yaml:"local_path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type WizardConfig struct {
	MinPasswordLength    int     `yaml:"min_password_length"`
	ProvisionMaxAttempts int     `yaml:"provision_max_attempts"`
	SignInRateLimit      float64 `yaml:"signin_rate_limit"`
	SignInBurst          int     `yaml:"signin_burst"`
}

type NotifyConfig struct {
	QueueSize  int `yaml:"queue_size"`
	MaxRetries int `yaml:"max_retries"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env не обязателен, но переменные из него подставляются в YAML
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Backend.Mode {
	case "rest":
		if c.Backend.BaseURL == "" {
			return errors.New("backend base_url is required in rest mode")
		}
		if c.Backend.AnonKey == "" || c.Backend.AnonKey == "YOUR_ANON_KEY_HERE" {
			return errors.New("backend anon_key is required in rest mode")
		}
		if !c.Redis.Enabled {
			return errors.New("rest mode needs redis for the change feed")
		}
	case "local":
		if c.Backend.LocalPath == "" {
			return errors.New("backend local_path is required in local mode")
		}
	default:
		return fmt.Errorf("unknown backend mode %q", c.Backend.Mode)
	}

	return ValidateServices(c.Services)
}

// ValidateServices rejects seed catalogs with duplicate or empty ids.
func ValidateServices(services []models.Service) error {
	seen := make(map[string]bool)
	for _, svc := range services {
		if svc.ID == "" {
			return fmt.Errorf("service '%s' has empty ID", svc.Name)
		}
		if seen[svc.ID] {
			return fmt.Errorf("duplicate service ID found: %s", svc.ID)
		}
		seen[svc.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend.Mode == "" {
		c.Backend.Mode = "local"
	}
	if c.Backend.Mode == "local" && c.Backend.LocalPath == "" {
		c.Backend.LocalPath = "data/geauxclean.db"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}

	if c.Wizard.MinPasswordLength == 0 {
		c.Wizard.MinPasswordLength = models.MinPasswordLength
	}
	if c.Wizard.ProvisionMaxAttempts == 0 {
		c.Wizard.ProvisionMaxAttempts = 5
	}
	if c.Wizard.SignInRateLimit == 0 {
		c.Wizard.SignInRateLimit = float64(models.RateLimitAttempts) / float64(models.RateLimitWindow)
	}
	if c.Wizard.SignInBurst == 0 {
		c.Wizard.SignInBurst = models.RateLimitAttempts
	}

	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = models.NotifyQueueSize
	}
	if c.Notify.MaxRetries == 0 {
		c.Notify.MaxRetries = 3
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
