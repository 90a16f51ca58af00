package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/hearthquest/config"
	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/game/boss"
	mw "github.com/kasuganosora/hearthquest/middleware"
	"github.com/kasuganosora/hearthquest/store"
)

// LeaderboardHandler serves the boss battle leaderboard of the caller's family.
type LeaderboardHandler struct {
	lb  *boss.Leaderboard
	uow store.UnitOfWork
	cfg config.LeaderboardConfig
	now func() time.Time
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(lb *boss.Leaderboard, uow store.UnitOfWork, cfg config.LeaderboardConfig) *LeaderboardHandler {
	return &LeaderboardHandler{lb: lb, uow: uow, cfg: cfg, now: time.Now}
}

// Top handles GET /api/boss/leaderboard?from=&to=&limit=.
// from and to are RFC 3339 timestamps and must be given together; without
// them the trailing window_days window in the family's timezone is used.
func (h *LeaderboardHandler) Top(c *gin.Context) {
	actor, ok := mw.GetActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	limit, err := h.limit(c.Query("limit"))
	if err != nil {
		fail(c, err)
		return
	}
	w, err := h.window(c, actor.FamilyID)
	if err != nil {
		fail(c, err)
		return
	}
	standings, err := h.lb.Top(c.Request.Context(), actor.FamilyID, w, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":      w.From,
		"to":        w.To,
		"standings": standings,
	})
}

func (h *LeaderboardHandler) limit(raw string) (int, error) {
	if raw == "" {
		return h.cfg.DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errs.InvalidInput("limit", "must be a positive integer")
	}
	if n > h.cfg.MaxLimit {
		n = h.cfg.MaxLimit
	}
	return n, nil
}

func (h *LeaderboardHandler) window(c *gin.Context, familyID int64) (boss.Window, error) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" && to == "" {
		fam, err := h.uow.Families().Get(c.Request.Context(), familyID)
		if err != nil {
			return boss.Window{}, err
		}
		return boss.TrailingWindow(h.now(), h.cfg.WindowDays, fam.Timezone)
	}
	if from == "" || to == "" {
		return boss.Window{}, errs.InvalidInput("window", "from and to must be given together")
	}
	f, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return boss.Window{}, errs.InvalidInput("from", err.Error())
	}
	t, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return boss.Window{}, errs.InvalidInput("to", err.Error())
	}
	w := boss.Window{From: f.UTC(), To: t.UTC()}
	return w, w.Validate()
}
