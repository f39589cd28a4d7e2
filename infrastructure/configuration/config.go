package configuration

import (
	"fmt"
	"os"
	"strconv"

	"socialhub/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Scheduler   Scheduler   `json:"scheduler"`
	RuleEngine  RuleEngine  `json:"ruleEngine"`
	Credential  Credential  `json:"credential"`
	Platforms   Platforms   `json:"platforms"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mssql Db `json:"mssql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID     string `json:"projectID"`
	ContentSub    string `json:"contentSub"`
	EngagementSub string `json:"engagementSub"`
	HashtagSub    string `json:"hashtagSub"`
}

type ServiceBus struct {
	Namespace  string `json:"namespace"`
	AlertQueue string `json:"alertQueue"`
}

// Scheduler tunes the publish worker loop.
type Scheduler struct {
	PollIntervalSec    int `json:"pollIntervalSec"`
	ClaimBatchSize     int `json:"claimBatchSize"`
	LeaseMinutes       int `json:"leaseMinutes"`
	MaxAttempts        int `json:"maxAttempts"`
	MaxConcurrent      int `json:"maxConcurrent"`
	DispatchTimeoutSec int `json:"dispatchTimeoutSec"`
}

// RuleEngine tunes the automation evaluation loop.
type RuleEngine struct {
	TickIntervalSec int `json:"tickIntervalSec"`
	EventBuffer     int `json:"eventBuffer"`
}

// Credential tunes token refresh.
type Credential struct {
	RefreshMarginMinutes int `json:"refreshMarginMinutes"`
}

// Platforms carries per-platform API credentials and rate limits.
type Platforms struct {
	Facebook  Platform `json:"facebook"`
	Twitter   Platform `json:"twitter"`
	Instagram Platform `json:"instagram"`
	LinkedIn  Platform `json:"linkedin"`
	YouTube   Platform `json:"youtube"`
	TikTok    Platform `json:"tiktok"`
}

type Platform struct {
	ClientID      string  `json:"clientId"`
	ClientSecret  string  `json:"clientSecret"`
	TokenURL      string  `json:"tokenURL"`
	BaseURL       string  `json:"baseURL"`
	RatePerSecond float64 `json:"ratePerSecond"`
	Burst         int     `json:"burst"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initWorkers(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	// Optional MSSQL config via environment variables (for Azure SQL in production)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}
}

func initApp(C *Config) {
	// SECRET_KEY from environment overrides the config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
}

func initWorkers(C *Config) {
	if C.Scheduler.PollIntervalSec == 0 {
		C.Scheduler.PollIntervalSec = 15
	}
	if C.Scheduler.ClaimBatchSize == 0 {
		C.Scheduler.ClaimBatchSize = 20
	}
	if C.Scheduler.LeaseMinutes == 0 {
		C.Scheduler.LeaseMinutes = 10
	}
	if C.Scheduler.MaxAttempts == 0 {
		C.Scheduler.MaxAttempts = 5
	}
	if C.Scheduler.MaxConcurrent == 0 {
		C.Scheduler.MaxConcurrent = 32
	}
	if C.Scheduler.DispatchTimeoutSec == 0 {
		C.Scheduler.DispatchTimeoutSec = 30
	}
	if C.RuleEngine.TickIntervalSec == 0 {
		C.RuleEngine.TickIntervalSec = 30
	}
	if C.RuleEngine.EventBuffer == 0 {
		C.RuleEngine.EventBuffer = 256
	}
	if C.Credential.RefreshMarginMinutes == 0 {
		C.Credential.RefreshMarginMinutes = 5
	}
}
