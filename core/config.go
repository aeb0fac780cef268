package core

import (
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type Config struct {
	Env          string
	Build        string
	Debug        bool
	TestMode     bool
	RollbarToken string

	Server struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
		AllowOrigins    []string
	}

	Database struct {
		URL             string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}

	Auth struct {
		PrivateKey string // PEM
		PublicKey  string // PEM
	}

	Scheduler struct {
		SubmissionURL string
		UserAgent     string
	}
}

// Address is the host:port pair used both to listen and to build Location headers.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// Validate checks the values the API cannot start without.
func (c *Config) Validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.Auth.PrivateKey, "CORE_PRIVATE_KEY"),
		vala.StringNotEmpty(c.Auth.PublicKey, "CORE_PUBLIC_KEY"),
		vala.StringNotEmpty(c.Database.URL, "DATABASE_URL"),
		vala.StringNotEmpty(c.Server.Port, "SERVER_PORT"),
	).Check()
}

func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("build", "dev")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.allowOrigins", "*")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 30*time.Minute)
	v.SetDefault("scheduler.userAgent", "autograder-repository")

	// load .env.<env> if it exists (ignore if it does not)
	dotEnvPath := ".env." + strings.ToLower(env)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	bindEnv(v, map[string]string{
		"debug":                    "DEBUG",
		"build":                    "BUILD",
		"rollbarToken":             "ROLLBAR_TOKEN",
		"server.host":              "SERVER_ADDRESS",
		"server.port":              "SERVER_PORT",
		"server.debugHost":         "SERVER_DEBUG_HOST",
		"server.shutdownTimeout":   "SERVER_SHUTDOWN_TIMEOUT",
		"server.allowOrigins":      "SERVER_ALLOW_ORIGINS",
		"database.url":             "DATABASE_URL",
		"database.maxOpenConns":    "DATABASE_MAX_OPEN_CONNS",
		"database.maxIdleConns":    "DATABASE_MAX_IDLE_CONNS",
		"database.connMaxLifetime": "DATABASE_CONN_MAX_LIFETIME",
		"auth.privateKey":          "CORE_PRIVATE_KEY",
		"auth.publicKey":           "CORE_PUBLIC_KEY",
		"scheduler.submissionURL":  "SCHEDULING_SUBMISSION_URL",
		"scheduler.userAgent":      "SCHEDULING_USER_AGENT",
	})

	conf := &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("server.host")
	conf.Server.Port = v.GetString("server.port")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.AllowOrigins = splitList(v.GetString("server.allowOrigins"))
	conf.Database.URL = v.GetString("database.url")
	conf.Database.MaxOpenConns = v.GetInt("database.maxOpenConns")
	conf.Database.MaxIdleConns = v.GetInt("database.maxIdleConns")
	conf.Database.ConnMaxLifetime = v.GetDuration("database.connMaxLifetime")
	conf.Auth.PrivateKey = v.GetString("auth.privateKey")
	conf.Auth.PublicKey = v.GetString("auth.publicKey")
	conf.Scheduler.SubmissionURL = CleanString(v.GetString("scheduler.submissionURL"))
	conf.Scheduler.UserAgent = v.GetString("scheduler.userAgent")
	return conf
}

func bindEnv(v *viper.Viper, keys map[string]string) {
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			log.Fatalf("config.BindEnv(%s): %v", key, err)
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = CleanString(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
