// Package config loads framealloc settings from defaults, an optional YAML
// file and FRAMEALLOC_* environment variables.
package config

import (
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/framealloc/arena"
	"github.com/joshuapare/framealloc/internal/store"
	"github.com/joshuapare/framealloc/pool"
)

const envPrefix = "FRAMEALLOC"

// Config holds every tunable of the allocator.
//
// Environment variables mirror the YAML keys, for example
// FRAMEALLOC_ARENA or FRAMEALLOC_TIERS_SMALL_PAGE_SIZE.
type Config struct {
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// Arena is the page implementation: "freelist" or "bump".
	Arena string `yaml:"arena" envconfig:"ARENA"`

	// Store backs pages: "heap" or "mmap".
	Store string `yaml:"store" envconfig:"STORE"`

	// StoreLimit caps the bytes reserved per pool. Zero means no cap.
	StoreLimit int `yaml:"store_limit" envconfig:"STORE_LIMIT"`

	// DefragThreshold is the usage fraction below which a free-list page
	// defragments on a miss. Zero disables it.
	DefragThreshold float64 `yaml:"defrag_threshold" envconfig:"DEFRAG_THRESHOLD"`

	Tiers TiersConfig `yaml:"tiers" envconfig:"TIERS"`
}

// TiersConfig describes the small / large / huge tiering.
type TiersConfig struct {
	SmallLimit    int `yaml:"small_limit" envconfig:"SMALL_LIMIT"`
	SmallPageSize int `yaml:"small_page_size" envconfig:"SMALL_PAGE_SIZE"`
	LargeLimit    int `yaml:"large_limit" envconfig:"LARGE_LIMIT"`
	LargePageSize int `yaml:"large_page_size" envconfig:"LARGE_PAGE_SIZE"`

	// HugePageSize is the minimum page size for requests above LargeLimit.
	// Zero gives each of them a dedicated page.
	HugePageSize int `yaml:"huge_page_size" envconfig:"HUGE_PAGE_SIZE"`
}

var Default = Config{
	LogLevel:        "info",
	Arena:           string(arena.KindFreeList),
	Store:           string(store.KindHeap),
	DefragThreshold: arena.DefaultDefragThreshold,
	Tiers: TiersConfig{
		SmallLimit:    pool.SmallLimit,
		SmallPageSize: pool.SmallPageSize,
		LargeLimit:    pool.LargeLimit,
		LargePageSize: pool.LargePageSize,
	},
}

// Load returns the default configuration overlaid with the YAML file at path
// (skipped when path is empty) and then with the environment. The result is
// validated.
func Load(path string) (*Config, error) {
	conf := Default

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "config: read file")
		}
		if err := yaml.Unmarshal(data, &conf); err != nil {
			return nil, errors.Wrapf(err, "config: couldn't unmarshal %s", path)
		}
	}

	if err := envconfig.Process(envPrefix, &conf); err != nil {
		return nil, errors.Wrap(err, "config: failed to process env vars")
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "log_level"))
	}
	if _, err := arena.ParseKind(c.Arena); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "arena"))
	}
	if _, err := store.New(c.Store); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "store"))
	}
	if c.StoreLimit < 0 {
		result = multierror.Append(result, errors.Errorf("store_limit: %d is negative", c.StoreLimit))
	}
	if c.DefragThreshold < 0 || c.DefragThreshold > 1 {
		result = multierror.Append(result, errors.Errorf("defrag_threshold: %v is outside [0, 1]", c.DefragThreshold))
	}
	if err := pool.ValidateTiers(c.PoolTiers()); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "tiers"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(err, "config: invalid")
	}
	return nil
}

// PoolTiers converts the tier settings.
func (c *Config) PoolTiers() []pool.Tier {
	return []pool.Tier{
		{Name: "small", Limit: c.Tiers.SmallLimit, PageSize: c.Tiers.SmallPageSize},
		{Name: "large", Limit: c.Tiers.LargeLimit, PageSize: c.Tiers.LargePageSize},
		{Name: "huge", Limit: 0, PageSize: c.Tiers.HugePageSize},
	}
}

// ArenaFactory returns the factory for the configured arena kind.
func (c *Config) ArenaFactory() (arena.Factory, error) {
	kind, err := arena.ParseKind(c.Arena)
	if err != nil {
		return nil, err
	}
	return kind.Factory(arena.WithDefragThreshold(c.DefragThreshold)), nil
}

// NewStore returns a fresh store of the configured kind, capped at
// StoreLimit when set. Each call returns an independent budget.
func (c *Config) NewStore() (store.Store, error) {
	s, err := store.New(c.Store)
	if err != nil {
		return nil, err
	}
	if c.StoreLimit > 0 {
		return store.NewLimited(s, c.StoreLimit), nil
	}
	return s, nil
}

// PoolOptions builds pool options from the configuration. log may be nil.
func (c *Config) PoolOptions(log logrus.FieldLogger) (*pool.Options, error) {
	factory, err := c.ArenaFactory()
	if err != nil {
		return nil, err
	}
	s, err := c.NewStore()
	if err != nil {
		return nil, err
	}
	return &pool.Options{
		Tiers:  c.PoolTiers(),
		Store:  s,
		Arena:  factory,
		Logger: log,
	}, nil
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "config: marshal")
	}
	return out, nil
}
