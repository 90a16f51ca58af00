package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kasuganosora/hearthquest/api/sse"
	"github.com/kasuganosora/hearthquest/audit"
	"github.com/kasuganosora/hearthquest/config"
	"github.com/kasuganosora/hearthquest/game/boss"
	"github.com/kasuganosora/hearthquest/game/progression"
	"github.com/kasuganosora/hearthquest/game/quest"
	mw "github.com/kasuganosora/hearthquest/middleware"
	"github.com/kasuganosora/hearthquest/scheduler"
	"github.com/kasuganosora/hearthquest/store"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Config      *config.Config
	UOW         store.UnitOfWork
	Quests      *quest.Service
	Levels      *progression.Evaluator
	Leaderboard *boss.Leaderboard
	Scheduler   *scheduler.Scheduler
	Events      sse.Source // optional
	Audit       *audit.Service // optional
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(d.Logger), mw.Recovery(d.Logger), mw.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	questH := NewQuestHandler(d.Quests)
	streakH := NewStreakHandler(d.UOW, cfg.Rules.Streak)
	charH := NewCharacterHandler(d.UOW, d.Levels)
	lbH := NewLeaderboardHandler(d.Leaderboard, d.UOW, cfg.Leaderboard)
	adminH := NewAdminHandler(d.Quests, d.Scheduler, d.Logger)

	api := r.Group("/api")
	{
		authed := api.Group("", mw.Auth(cfg.Security),
			mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst, mw.ByActor))
		if d.Audit != nil {
			authed.Use(mw.Audit(d.Audit))
		}

		questsG := authed.Group("/quests")
		questsG.GET("/:id", questH.Get)
		questsG.POST("/:id/claim", questH.Claim)
		questsG.POST("/:id/start", questH.Start)
		questsG.POST("/:id/complete", questH.Complete)
		questsG.POST("/:id/approve", questH.Approve)
		questsG.POST("/:id/reject", questH.Reject)

		authed.GET("/streaks/:character_id/:template_id", streakH.Get)
		authed.GET("/characters/me", charH.Me)
		authed.GET("/boss/leaderboard", lbH.Top)

		if d.Events != nil {
			eventsH := sse.NewHandler(d.Events, cfg.Security, cfg.Server.EventsKeepAlive, d.Logger)
			api.GET("/events", eventsH.ServeSSE)
		}

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Server.AdminIPs), AdminAuth(cfg.Server.AdminKey))
		adminG.POST("/quests/expire", adminH.ExpireOverdue)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/scheduler/:name/run", adminH.RunSchedulerTask)
	}
	return r
}
