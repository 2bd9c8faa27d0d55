package config

import (
	"fmt"
	"log"
	"refgate/lib/validate"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type Api struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	Token   string `yaml:"token" env:"API_TOKEN" env-default:""`
}

type Telegram struct {
	ApiKey  string `yaml:"api_key" env:"BOT_TOKEN" env-default:""`
	GroupId int64  `yaml:"group_id" env:"GROUP_ID" validate:"required"`
	AdminId int64  `yaml:"admin_id" env:"ADMIN_ID" validate:"required"`
	// BypassEnabled opens /alluser to everybody; the admin can always use it.
	BypassEnabled  bool   `yaml:"bypass_enabled" env-default:"false"`
	DigestSchedule string `yaml:"digest_schedule" env-default:"@every 1h"`
	LogLevel       string `yaml:"log_level" env-default:"error" validate:"oneof=debug info warn error"`
}

type Referral struct {
	Required    int `yaml:"required" env:"REQUIRED_REFERRALS" env-default:"5" validate:"gt=0"`
	MaxUsers    int `yaml:"max_users" env:"MAX_USERS" env-default:"2000" validate:"gt=0"`
	Leaderboard int `yaml:"leaderboard" env-default:"10" validate:"gt=0"`
}

type Database struct {
	Driver string `yaml:"driver" env-default:"sqlite" validate:"oneof=sqlite mysql mongo"`
}

type SQLite struct {
	Path string `yaml:"path" env-default:"refgate.db"`
}

type MySql struct {
	HostName string `yaml:"hostname" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"username" env-default:""`
	Password string `yaml:"password" env:"MYSQL_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"refgate"`
}

// Mongo connects by Uri when set, otherwise by host and port.
type Mongo struct {
	Uri      string `yaml:"uri" env:"MONGO_URI" env-default:""`
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"refgate"`
}

type Config struct {
	Env      string   `yaml:"env" env-default:"local" validate:"oneof=local dev prod"`
	Telegram Telegram `yaml:"telegram"`
	Referral Referral `yaml:"referral"`
	Database Database `yaml:"database"`
	SQLite   SQLite   `yaml:"sqlite"`
	MySql    MySql    `yaml:"mysql"`
	Mongo    Mongo    `yaml:"mongo"`
	Listen   Listen   `yaml:"listen"`
	Api      Api      `yaml:"api"`
}

var instance *Config
var once sync.Once

// Load reads the YAML file at path, applies env overrides (a .env file in the
// working directory is loaded first if present) and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	if err := validate.Struct(conf); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return conf, nil
}

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
