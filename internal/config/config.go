package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/officechat/internal/domain"
)

type Config struct {
	Server    Server            `yaml:"server"`
	Directory Directory         `yaml:"directory"`
	Users     []domain.Identity `yaml:"users"`
}

type Server struct {
	Listen         string `yaml:"listen"`
	DataPath       string `yaml:"dataPath"`
	PostgresDsn    string `yaml:"postgresDsn"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RedisDB        int    `yaml:"redisDB"`
	RedisChannel   string `yaml:"redisChannel"`
	EnableTrace    bool   `yaml:"enableTrace"`
	TraceEndpoint  string `yaml:"traceEndpoint"`
	IdentityHeader string `yaml:"identityHeader"`
	LogLevel       string `yaml:"logLevel"`
}

// Directory selects where identities come from. With an empty URL the
// users listed in the config file are used.
type Directory struct {
	URL      string        `yaml:"url"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decode %s", path)
	}

	config.applyDefaults()

	if config.Directory.URL == "" && len(config.Users) == 0 {
		return Config{}, errors.New("no users configured and no directory url set")
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":3000"
	}
	if c.Server.DataPath == "" {
		c.Server.DataPath = "data/db.json"
	}
	if c.Server.RedisChannel == "" {
		c.Server.RedisChannel = "officechat:events"
	}
	if c.Server.IdentityHeader == "" {
		c.Server.IdentityHeader = domain.RequesterIdHeader
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Directory.CacheTTL <= 0 {
		c.Directory.CacheTTL = time.Minute
	}
}
