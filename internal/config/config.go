package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort     int      `yaml:"apiPort"`
	CORSOrigins []string `yaml:"corsOrigins"`
	Database    struct {
		Type       string `yaml:"type"` // "sqlite" or "postgres"
		Path       string `yaml:"path"` // sqlite file path
		Host       string `yaml:"host"`
		Port       string `yaml:"port"`
		User       string `yaml:"user"`
		Password   string `yaml:"password"`
		Name       string `yaml:"name"`
		SSLMode    string `yaml:"sslMode"`
		MaxRetries int    `yaml:"maxRetries"`
		RetryDelay int    `yaml:"retryDelay"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`
	Analysis struct {
		GeminiAPIKey string `yaml:"geminiApiKey"`
		Model        string `yaml:"model"`
	} `yaml:"analysis"`
	Archive struct {
		Enabled         bool   `yaml:"enabled"`
		Endpoint        string `yaml:"endpoint"`
		Region          string `yaml:"region"`
		Bucket          string `yaml:"bucket"`
		AccessKeyID     string `yaml:"accessKeyId"`
		SecretAccessKey string `yaml:"secretAccessKey"`
	} `yaml:"archive"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("APIPort not specified, using default 8081")
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
		log.Println("Database type not specified, using sqlite")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/data/medivision.db"
		log.Println("Database path not specified, using default /data/medivision.db")
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxRetries == 0 {
		cfg.Database.MaxRetries = 5
	}
	if cfg.Database.RetryDelay == 0 {
		cfg.Database.RetryDelay = 5
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "medivision_secret"
		log.Println("JWT secret not specified, using insecure default")
	}

	if cfg.Analysis.GeminiAPIKey == "" {
		cfg.Analysis.GeminiAPIKey = v.GetString("GEMINI_API_KEY")
	}
	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = "gemini-2.0-flash"
	}

	if len(cfg.CORSOrigins) == 0 {
		origins := v.GetString("CORS_ORIGINS")
		if origins == "" {
			origins = "*"
		}
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	return &cfg, nil
}
