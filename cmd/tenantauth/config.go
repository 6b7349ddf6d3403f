package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/tenantauth/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultCookieDomain = "localhost"
	defaultKafkaTopic   = "auth-events"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	// Storage is kept in memory if not set: sessions are lost on restart
	DatabaseDSN string

	// Path to PEM encoded RSA private key access tokens are signed with
	PrivateKeyPath string

	// HMAC secret for refresh tokens, at least 32 bytes
	RefreshSecret string

	// Domain auth cookies are set for
	CookieDomain string

	// Redis to count failed logins in. No login throttling if not set
	RedisAddr string

	// Kafka to publish auth events to. Events are dropped if brokers not set
	KafkaBrokers []string
	KafkaTopic   string

	// Verify access tokens with keys published by another instance instead of local key
	JWKSURL string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:     defaultLoggingLevel,
		ListenAddr:   defaultListenAddr,
		Environment:  defaultEnvironment,
		CookieDomain: defaultCookieDomain,
		KafkaTopic:   defaultKafkaTopic,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setList := func(o *[]string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = splitList(value)
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":          setString(&c.ListenAddr),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
		"PRIVATE_KEY_PATH":     setString(&c.PrivateKeyPath),
		"REFRESH_TOKEN_SECRET": setString(&c.RefreshSecret),
		"COOKIE_DOMAIN":        setString(&c.CookieDomain),
		"REDIS_ADDR":           setString(&c.RedisAddr),
		"KAFKA_BROKERS":        setList(&c.KafkaBrokers),
		"KAFKA_TOPIC":          setString(&c.KafkaTopic),
		"JWKS_URL":             setString(&c.JWKSURL),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("tenantauth", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.PrivateKeyPath, "private-key", "k", c.PrivateKeyPath, "Path to RSA private key (PEM)")
	fs.StringVarP(&c.RefreshSecret, "refresh-secret", "s", c.RefreshSecret, "Refresh token secret")
	fs.StringVar(&c.CookieDomain, "cookie-domain", c.CookieDomain, "Auth cookies domain")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address for login throttling")
	fs.StringSliceVar(&c.KafkaBrokers, "kafka-brokers", c.KafkaBrokers, "Kafka brokers, comma separated")
	fs.StringVar(&c.KafkaTopic, "kafka-topic", c.KafkaTopic, "Kafka topic for auth events")
	fs.StringVar(&c.JWKSURL, "jwks-url", c.JWKSURL, "Remote JWKS to verify access tokens with")

	return fs.Parse(args)
}

func splitList(value string) []string {
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
