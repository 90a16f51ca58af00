package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/game/calendar"
	"github.com/kasuganosora/hearthquest/game/progression"
	"github.com/kasuganosora/hearthquest/game/reward"
	"github.com/kasuganosora/hearthquest/game/streak"
	"github.com/kasuganosora/hearthquest/model"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Security    SecurityConfig    `mapstructure:"security"`
	Rules       RulesConfig       `mapstructure:"rules"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Audit       AuditConfig       `mapstructure:"audit"`
}

type ServerConfig struct {
	Port     int      `mapstructure:"port"`
	Debug    bool     `mapstructure:"debug"`
	AdminKey string   `mapstructure:"admin_key"`
	AdminIPs []string `mapstructure:"admin_ips"` // empty allows any address

	EventsKeepAlive time.Duration `mapstructure:"events_keepalive"`
}

type DatabaseConfig struct {
	Mode        string        `mapstructure:"mode"` // sqlite | mysql | postgres
	SQLitePath  string        `mapstructure:"sqlite_path"`
	MySQLDSN    string        `mapstructure:"mysql_dsn"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLife     time.Duration `mapstructure:"max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// RulesConfig holds the tables the engine consumes. Class keys are
// case-insensitive; viper lowercases them on load.
type RulesConfig struct {
	ClassBonus      map[string]reward.Multipliers `mapstructure:"class_bonus"`
	LevelCurve      []int64                       `mapstructure:"level_curve"` // accumulated XP to reach level 2, 3, ...
	LevelCosts      []int64                       `mapstructure:"level_costs"` // XP spent inside level 1, 2, ...; converted to a curve
	Streak          streak.Rules                  `mapstructure:"streak"`
	VolunteerBonus  float64                       `mapstructure:"volunteer_bonus"`
	DefaultTimezone string                        `mapstructure:"default_timezone"`
}

type SchedulerConfig struct {
	ExpiryInterval      time.Duration `mapstructure:"expiry_interval"`
	LeaderboardInterval time.Duration `mapstructure:"leaderboard_interval"`
}

type LeaderboardConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	WindowDays   int           `mapstructure:"window_days"` // default trailing window
}

type AuditConfig struct {
	Buffer        int           `mapstructure:"buffer"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// ClassTable converts the configured class bonuses to an engine table.
func (r RulesConfig) ClassTable() (reward.ClassTable, error) {
	table := make(reward.ClassTable, len(r.ClassBonus))
	for name, m := range r.ClassBonus {
		class := model.Class(strings.ToUpper(name))
		if !class.Valid() {
			return nil, errs.InvalidInput("rules.class_bonus", fmt.Sprintf("unknown class %q", name))
		}
		table[class] = m
	}
	return table, table.Validate()
}

// Curve returns the configured threshold table, the table accumulated from
// per-level costs, or the default curve when neither is set.
func (r RulesConfig) Curve() progression.Curve {
	switch {
	case len(r.LevelCurve) > 0:
		return progression.Curve(r.LevelCurve)
	case len(r.LevelCosts) > 0:
		return progression.FromCosts(r.LevelCosts)
	}
	return progression.DefaultCurve()
}

// Validate checks every rules table so a bad file fails at startup.
func (r RulesConfig) Validate() error {
	if _, err := r.ClassTable(); err != nil {
		return err
	}
	if len(r.LevelCurve) > 0 && len(r.LevelCosts) > 0 {
		return errs.InvalidInput("rules", "set level_curve or level_costs, not both")
	}
	for i, cost := range r.LevelCosts {
		if cost <= 0 {
			return errs.InvalidInput("rules.level_costs", fmt.Sprintf("level %d cost %d is not positive", i+1, cost))
		}
	}
	if err := r.Curve().Validate(); err != nil {
		return err
	}
	if err := r.Streak.Validate(); err != nil {
		return err
	}
	if r.VolunteerBonus < 0 {
		return errs.InvalidInput("rules.volunteer_bonus", "must be non-negative")
	}
	if _, err := calendar.Location(r.DefaultTimezone); err != nil {
		return err
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	switch c.Database.Mode {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("config: unknown database mode %q", c.Database.Mode)
	}
	if c.Leaderboard.DefaultLimit <= 0 || c.Leaderboard.MaxLimit < c.Leaderboard.DefaultLimit {
		return fmt.Errorf("config: leaderboard limits %d/%d are inconsistent",
			c.Leaderboard.DefaultLimit, c.Leaderboard.MaxLimit)
	}
	if c.Leaderboard.WindowDays <= 0 {
		return fmt.Errorf("config: leaderboard window_days must be positive")
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.events_keepalive", "30s")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/hearthquest.db")
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	classes := make([]string, 0, len(model.Classes))
	for _, c := range model.Classes {
		classes = append(classes, string(c))
	}
	sort.Strings(classes)
	table := reward.DefaultClassTable()
	for _, name := range classes {
		m, ok := table[model.Class(name)]
		if !ok {
			m = reward.Neutral
		}
		key := "rules.class_bonus." + strings.ToLower(name)
		v.SetDefault(key+".xp", m.XP)
		v.SetDefault(key+".gold", m.Gold)
		v.SetDefault(key+".gems", m.Gems)
		v.SetDefault(key+".honor", m.Honor)
	}
	sr := streak.DefaultRules()
	v.SetDefault("rules.streak.increment", sr.Increment)
	v.SetDefault("rules.streak.threshold", sr.Threshold)
	v.SetDefault("rules.streak.cap", sr.Cap)
	v.SetDefault("rules.volunteer_bonus", 0.10)
	v.SetDefault("rules.default_timezone", calendar.DefaultTimezone)

	v.SetDefault("scheduler.expiry_interval", "1m")
	v.SetDefault("scheduler.leaderboard_interval", "5m")
	v.SetDefault("leaderboard.cache_ttl", "5m")
	v.SetDefault("leaderboard.default_limit", 10)
	v.SetDefault("leaderboard.max_limit", 100)
	v.SetDefault("leaderboard.window_days", 30)
	v.SetDefault("audit.buffer", 1024)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", "2s")
}

// Load reads config from the given YAML file path. An empty path yields the
// defaults. Keys may be overridden by HEARTHQUEST_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("hearthquest")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
