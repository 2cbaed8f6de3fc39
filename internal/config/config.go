package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string      `yaml:"log-level" env-default:"info"`
	HTTPPort          string      `yaml:"http-port" env-default:"9090"`
	SocketPort        string      `yaml:"socket-port" env-default:"9091"`
	Redis             Redis       `yaml:"redis"`
	SQLiteStoragePath string      `yaml:"sqlite-storage-path" env-default:"users.db"`
	SessionSecret     string      `yaml:"session-secret" env-default:"dev-secret"`
	GoogleOAuth       GoogleOAuth `yaml:"google-oauth"`
	Game              Game        `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

type GoogleOAuth struct {
	ClientID     string   `yaml:"client-id" env-default:""`
	ClientSecret string   `yaml:"client-secret" env-default:""`
	RedirectURL  string   `yaml:"redirect-url" env-default:""`
	Scopes       []string `yaml:"scopes" env-default:""`
}

type Game struct {
	TurnSeconds   int `yaml:"turn-seconds" env-default:"15"`
	RevealDelayMS int `yaml:"reveal-delay-ms" env-default:"1000"`
	MemoryPairs   int `yaml:"memory-pairs" env-default:"8"`
	CommitRetries int `yaml:"commit-retries" env-default:"3"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func (that *Game) TurnTTL() time.Duration {
	return time.Duration(that.TurnSeconds) * time.Second
}

func (that *Game) RevealDelay() time.Duration {
	return time.Duration(that.RevealDelayMS) * time.Millisecond
}
