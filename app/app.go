// Package app assembles the engine, its storage and its HTTP surface from
// configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/hearthquest/api/rest"
	"github.com/kasuganosora/hearthquest/audit"
	"github.com/kasuganosora/hearthquest/cache"
	"github.com/kasuganosora/hearthquest/config"
	dbadapter "github.com/kasuganosora/hearthquest/db"
	"github.com/kasuganosora/hearthquest/game/boss"
	"github.com/kasuganosora/hearthquest/game/progression"
	"github.com/kasuganosora/hearthquest/game/quest"
	"github.com/kasuganosora/hearthquest/game/reward"
	"github.com/kasuganosora/hearthquest/model"
	"github.com/kasuganosora/hearthquest/notify"
	"github.com/kasuganosora/hearthquest/scheduler"
	"github.com/kasuganosora/hearthquest/store"
)

// Scheduler task names.
const (
	TaskQuestExpiry        = "quest_expiry"
	TaskLeaderboardRefresh = "boss_leaderboard_refresh"
)

// App holds every long-lived component.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Cache       cache.Cache
	PubSub      cache.PubSub
	UOW         *store.Gorm
	Rewards     *reward.Resolver
	Levels      *progression.Evaluator
	Notifier    *notify.Publisher
	Quests      *quest.Service
	Leaderboard *boss.Leaderboard
	Scheduler   *scheduler.Scheduler
	Audit       *audit.Service
}

// New opens storage and the cache and builds the engine services. It does
// not migrate the schema or start any tasks.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.Database.Mode == dbadapter.ModeSQLite {
		if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("app: create data dir: %w", err)
			}
		}
	}
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("app: open db: %w", err)
	}
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("app: cache: %w", err)
	}
	ps, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("app: pubsub: %w", err)
	}

	classTable, err := cfg.Rules.ClassTable()
	if err != nil {
		return nil, fmt.Errorf("app: class bonus table: %w", err)
	}
	rewards, err := reward.NewResolver(classTable)
	if err != nil {
		return nil, fmt.Errorf("app: class bonus table: %w", err)
	}
	levels, err := progression.NewEvaluator(cfg.Rules.Curve())
	if err != nil {
		return nil, fmt.Errorf("app: level curve: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Cache:    c,
		PubSub:   ps,
		UOW:      store.NewGorm(db),
		Rewards:  rewards,
		Levels:   levels,
		Notifier: notify.NewPublisher(ps, logger),
	}
	a.Quests = quest.NewService(a.UOW, quest.Rules{
		Rewards:        rewards,
		Levels:         levels,
		Streak:         cfg.Rules.Streak,
		VolunteerBonus: cfg.Rules.VolunteerBonus,
	}, a.Notifier, logger)
	a.Leaderboard = boss.NewLeaderboard(a.UOW, boss.NewScorer(rewards), c, cfg.Leaderboard.CacheTTL, logger)
	a.Scheduler = scheduler.New(logger)
	if cfg.Cache.RedisAddr != "" {
		a.Scheduler.UseLock(c)
	}
	a.Audit = audit.New(db, cfg.Audit, logger)
	return a, nil
}

// Migrate creates or updates the schema.
func (a *App) Migrate() error {
	return model.AutoMigrate(a.DB)
}

// ScheduleTasks registers the periodic sweeps. A non-positive interval
// disables the task.
func (a *App) ScheduleTasks() {
	if iv := a.Config.Scheduler.ExpiryInterval; iv > 0 {
		a.Scheduler.AddTicker(TaskQuestExpiry, iv, func(ctx context.Context) error {
			_, err := a.Quests.ExpireOverdue(ctx, time.Now())
			return err
		})
	}
	if iv := a.Config.Scheduler.LeaderboardInterval; iv > 0 {
		a.Scheduler.AddTicker(TaskLeaderboardRefresh, iv, func(ctx context.Context) error {
			n, err := a.Leaderboard.RefreshAll(ctx, time.Now(), a.Config.Leaderboard.WindowDays)
			if err == nil {
				a.Logger.Debug("leaderboards refreshed", zap.Int("families", n))
			}
			return err
		})
	}
}

// Router builds the HTTP surface.
func (a *App) Router() *gin.Engine {
	if !a.Config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	return rest.NewRouter(rest.Deps{
		Config:      a.Config,
		UOW:         a.UOW,
		Quests:      a.Quests,
		Levels:      a.Levels,
		Leaderboard: a.Leaderboard,
		Scheduler:   a.Scheduler,
		Events:      a.Notifier,
		Audit:       a.Audit,
		Logger:      a.Logger,
	})
}

// Close stops background work and releases connections.
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Audit.Stop(context.Background())
	switch c := a.Cache.(type) {
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			a.Logger.Warn("cache close failed", zap.Error(err))
		}
	case interface{ Close() }:
		c.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
