package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig describes the daemon's PostgreSQL connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Server is the daemon configuration, read from file and environment.
type Server struct {
	Port          int            `mapstructure:"port"`
	JWTSecret     string         `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration  `mapstructure:"jwt_expiration"`
	Database      DatabaseConfig `mapstructure:"database"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
	}, nil
}

// LoadServer reads the daemon config. Environment variables override the
// file; DATABASE_URL, when present, replaces the whole database section.
func LoadServer(path string) (*Server, error) {
	v := viper.New()

	v.SetDefault("port", 5690)
	v.SetDefault("jwt_expiration", 30*24*time.Hour)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "scribble")
	v.SetDefault("database.sslmode", "disable")

	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbCfg, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		cfg.Database = dbCfg
	}

	if secret := v.GetString("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}

	return &cfg, nil
}
