package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		DebugHost                 string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ElevationExpirationDelta  time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr       string
		Password   string
		DB         int
		PreviewTTL time.Duration
	}

	ImportConfig struct {
		HeaderScanRows int
		MaxUploadSize  int64
		MaxMarks       map[string]float64 // exam type -> max marks
	}

	Config struct {
		Env                       string
		Build                     string
		AppName                   string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		RollbarToken              string
		SendgridApiKey            string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Import   ImportConfig

		defaultFromEmail string
		workDir          string
	}
)

// Address returns the database host:port
func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
}

func (conf *Config) WorkDir() string {
	return conf.workDir
}

// exam types whose max marks can be overridden with `import.maxMarks.<type>`
var examTypeKeys = []string{"mid1", "mid2", "assignment", "quiz", "internal", "external"}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Academia")
	conf.SetDefault("secretKey", "m7l!a2g0^cxb$u4-hd6k&q(=s1w)e9zr+yv3n#o8tf5jp_i")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.disableReqLogs", false)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("server.elevationExpirationDelta", 15*time.Minute)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "academia")
	conf.SetDefault("database.user", "academia")
	conf.SetDefault("database.password", "academia")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("redis.addr", "localhost:6379")
	conf.SetDefault("redis.password", "")
	conf.SetDefault("redis.db", 0)
	conf.SetDefault("redis.previewTTL", 2*time.Hour)

	conf.SetDefault("import.headerScanRows", 20)
	conf.SetDefault("import.maxUploadSize", int64(5<<20))

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	maxMarks := make(map[string]float64, len(examTypeKeys))
	for _, key := range examTypeKeys {
		if conf.IsSet("import.maxMarks." + key) {
			maxMarks[key] = conf.GetFloat64("import.maxMarks." + key)
		}
	}

	return &Config{
		Env:                       env,
		Build:                     conf.GetString("build"),
		AppName:                   conf.GetString("appName"),
		Debug:                     conf.GetBool("debug"),
		TestMode:                  conf.GetBool("testMode"),
		SecretKey:                 conf.GetString("secretKey"),
		FrontendBaseURL:           conf.GetString("frontendBaseURL"),
		RollbarToken:              conf.GetString("rollbarToken"),
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Address:                   conf.GetString("server.address"),
			DebugHost:                 conf.GetString("server.debugHost"),
			DisableReqLogs:            conf.GetBool("server.disableReqLogs"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			ElevationExpirationDelta:  conf.GetDuration("server.elevationExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:       conf.GetString("redis.addr"),
			Password:   conf.GetString("redis.password"),
			DB:         conf.GetInt("redis.db"),
			PreviewTTL: conf.GetDuration("redis.previewTTL"),
		},
		Import: ImportConfig{
			HeaderScanRows: conf.GetInt("import.headerScanRows"),
			MaxUploadSize:  conf.GetInt64("import.maxUploadSize"),
			MaxMarks:       maxMarks,
		},
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		workDir:          wd,
	}
}

// NewTestConfig returns a Config suitable for tests: no .env lookups, TEST mode.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   "Academia",
		TestMode:                  true,
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: ServerConfig{
			DisableReqLogs:            true,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ElevationExpirationDelta:  15 * time.Minute,
		},
		Redis:            RedisConfig{PreviewTTL: time.Hour},
		Import:           ImportConfig{HeaderScanRows: 20, MaxUploadSize: 5 << 20},
		defaultFromEmail: "noreply@test.local",
	}
}

// getwd returns the current working directory or dies.
func getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return wd
}
