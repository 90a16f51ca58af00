// Package metrics provides Prometheus metrics for quest approvals, payouts,
// streaks, sweeps and scheduled jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QuestTransitions counts successful lifecycle transitions by target status.
var QuestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "quest_transitions_total",
	Help:      "Successful quest lifecycle transitions.",
}, []string{"action", "status"})

// QuestRejections counts refused lifecycle actions by error kind.
var QuestRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "quest_action_errors_total",
	Help:      "Quest lifecycle actions that returned an error.",
}, []string{"action", "kind"})

// ApprovalLatency tracks the duration of the approval unit of work.
var ApprovalLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "hearthquest",
	Name:      "approval_duration_seconds",
	Help:      "Duration of quest approval transactions.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
})

// RewardPaid sums resources paid out by approvals.
var RewardPaid = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "reward_paid_total",
	Help:      "Resources paid out to characters.",
}, []string{"resource"})

// LevelUps counts levels gained.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "levels_gained_total",
	Help:      "Levels gained through approvals.",
})

// StreakBreaks counts streaks restarted at approval or reset by the sweep.
var StreakBreaks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "streak_breaks_total",
	Help:      "Streaks broken, by cause.",
}, []string{"cause"})

// SweepExpired counts quests closed by the overdue sweep by final status.
var SweepExpired = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "sweep_closed_total",
	Help:      "Quests closed by the overdue sweep.",
}, []string{"status"})

// LeaderboardBuilds counts leaderboard computations by source.
var LeaderboardBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "leaderboard_requests_total",
	Help:      "Boss leaderboard requests by source (cache or store).",
}, []string{"source"})

// SchedulerRuns counts scheduled task runs by task and outcome.
var SchedulerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "scheduler_runs_total",
	Help:      "Scheduled task runs.",
}, []string{"task", "outcome"})

// HTTPRequests counts API requests by route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hearthquest",
	Name:      "http_requests_total",
	Help:      "HTTP requests handled.",
}, []string{"route", "code"})
