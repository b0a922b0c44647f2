package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendMongo  = "mongo"
	SessionBackendRedis  = "redis"
)

type Config struct {
	Env    string `yaml:"env" env:"ENV" env-default:"local"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"9100"`
		ApiKey string `yaml:"key" env:"API_KEY" env-default:""`
	} `yaml:"listen"`
	WhatsApp struct {
		Enabled       bool   `yaml:"enabled" env-default:"false"`
		AccessToken   string `yaml:"access_token" env:"WA_ACCESS_TOKEN" env-default:""`
		VerifyToken   string `yaml:"verify_token" env:"WA_VERIFY_TOKEN" env-default:""`
		AppSecret     string `yaml:"app_secret" env:"WA_APP_SECRET" env-default:""`
		PhoneNumberID string `yaml:"phone_number_id" env:"WA_PHONE_NUMBER_ID" env-default:""`
		ApiURL        string `yaml:"api_url" env-default:"https://graph.facebook.com/v21.0"`
	} `yaml:"whatsapp"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env-default:"panikkar"`
	} `yaml:"mongo"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Addr     string `yaml:"addr" env-default:"127.0.0.1:6379"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env-default:"0"`
	} `yaml:"redis"`
	Postgres struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"localhost"`
		Port     string `yaml:"port" env-default:"5432"`
		User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
		Password string `yaml:"password" env:"DB_PASS" env-default:""`
		Database string `yaml:"database" env:"DB_NAME" env-default:"panikkar"`
		SSLMode  string `yaml:"ssl_mode" env-default:"disable"`
	} `yaml:"postgres"`
	Session struct {
		Backend       string        `yaml:"backend" env:"SESSION_BACKEND" env-default:"memory"`
		IdleTimeout   time.Duration `yaml:"idle_timeout" env-default:"30m"`
		SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1m"`
	} `yaml:"session"`
	Media struct {
		Secret    string        `yaml:"secret" env:"MEDIA_SECRET" env-default:""`
		UrlTTL    time.Duration `yaml:"url_ttl" env-default:"15m"`
		PublicURL string        `yaml:"public_url" env:"PUBLIC_URL" env-default:""`
	} `yaml:"media"`
	Limits Limits `yaml:"limits"`
}

// Limits bounds free-text and numeric answers collected by the flows.
type Limits struct {
	MinPay         int64 `yaml:"min_pay" env-default:"100"`
	MaxPay         int64 `yaml:"max_pay" env-default:"100000"`
	TitleMax       int   `yaml:"title_max" env-default:"100"`
	DescriptionMax int   `yaml:"description_max" env-default:"500"`
	NoteMax        int   `yaml:"note_max" env-default:"300"`
}

// PostgresDSN builds the gorm/pgx connection string.
func (c *Config) PostgresDSN() string {
	p := c.Postgres
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.Database, p.Port, p.SSLMode)
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	once.Do(func() {
		conf, err := Load(path)
		if err != nil {
			log.Fatal(err)
		}
		instance = conf
	})
	return instance
}

// Load reads an optional .env next to the config file, then the YAML file with env overrides.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("%s; %s", err, desc)
	}

	switch conf.Session.Backend {
	case SessionBackendMemory, SessionBackendMongo, SessionBackendRedis:
	default:
		return nil, fmt.Errorf("unknown session backend: %q", conf.Session.Backend)
	}
	if conf.Limits.MinPay > conf.Limits.MaxPay {
		return nil, fmt.Errorf("limits: min_pay %d exceeds max_pay %d", conf.Limits.MinPay, conf.Limits.MaxPay)
	}

	return conf, nil
}
