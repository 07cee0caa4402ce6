package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Address            string
		DebugAddress       string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	StoreConfig struct {
		Driver    string // memory | sqlite | postgres | redis
		DSN       string
		Namespace string
		Strict    bool // fail on malformed collections instead of reading them as empty
	}

	ChatConfig struct {
		PollInterval     time.Duration
		MaxMessageLength int
	}

	TutorConfig struct {
		URL          string
		AccessToken  string
		Timeout      time.Duration
		RateLimit    float64 // requests per second, per user
		RateBurst    int
		DetailsLimit int
	}

	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		SecretKey    string
		RollbarToken string

		Server ServerConfig
		Store  StoreConfig
		Chat   ChatConfig
		Tutor  TutorConfig
	}
)

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the current env, e.g. `DEV_STORE_DSN`.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Masomo")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugAddress", "")
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("store.driver", "sqlite")
	conf.SetDefault("store.dsn", "masomo.db")
	conf.SetDefault("store.namespace", "masomo")
	conf.SetDefault("store.strict", false)
	conf.SetDefault("chat.pollInterval", 3*time.Second)
	conf.SetDefault("chat.maxMessageLength", 2000)
	conf.SetDefault("tutor.url", "")
	conf.SetDefault("tutor.accessToken", "")
	conf.SetDefault("tutor.timeout", 15*time.Second)
	conf.SetDefault("tutor.rateLimit", 0.5)
	conf.SetDefault("tutor.rateBurst", 3)
	conf.SetDefault("tutor.detailsLimit", 50)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
		conf.SetDefault("store.driver", "memory")
	case "PROD":
		conf.SetDefault("debug", false)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		AppName:      conf.GetString("appName"),
		Build:        conf.GetString("build"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("server.host"),
			Address:            conf.GetString("server.address"),
			DebugAddress:       conf.GetString("server.debugAddress"),
			JWTExpirationDelta: conf.GetDuration("server.jwtExpirationDelta"),
			ShutdownTimeout:    conf.GetDuration("server.shutdownTimeout"),
		},
		Store: StoreConfig{
			Driver:    strings.ToLower(conf.GetString("store.driver")),
			DSN:       conf.GetString("store.dsn"),
			Namespace: conf.GetString("store.namespace"),
			Strict:    conf.GetBool("store.strict"),
		},
		Chat: ChatConfig{
			PollInterval:     conf.GetDuration("chat.pollInterval"),
			MaxMessageLength: conf.GetInt("chat.maxMessageLength"),
		},
		Tutor: TutorConfig{
			URL:          conf.GetString("tutor.url"),
			AccessToken:  conf.GetString("tutor.accessToken"),
			Timeout:      conf.GetDuration("tutor.timeout"),
			RateLimit:    conf.GetFloat64("tutor.rateLimit"),
			RateBurst:    conf.GetInt("tutor.rateBurst"),
			DetailsLimit: conf.GetInt("tutor.detailsLimit"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests, independent of the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:       "TEST",
		Debug:     true,
		TestMode:  true,
		AppName:   "Masomo",
		Build:     "test",
		SecretKey: "secret",
		Server: ServerConfig{
			Host:               "localhost",
			JWTExpirationDelta: 10 * time.Minute,
			ShutdownTimeout:    time.Second,
		},
		Store: StoreConfig{Driver: "memory", Namespace: "test"},
		Chat: ChatConfig{
			PollInterval:     3 * time.Second,
			MaxMessageLength: 2000,
		},
		Tutor: TutorConfig{
			Timeout:      time.Second,
			RateLimit:    100,
			RateBurst:    100,
			DetailsLimit: 50,
		},
	}
}
