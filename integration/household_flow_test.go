package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/hearthquest/app"
	"github.com/kasuganosora/hearthquest/game/quest"
	"github.com/kasuganosora/hearthquest/model"
	"github.com/kasuganosora/hearthquest/testutil"
)

const wait = 2 * time.Second

func TestHealthEndpoint(t *testing.T) {
	ts := NewTestServer(t)
	body := Expect(t, ts.Get(t, "/health", ""), http.StatusOK)
	assert.Equal(t, "ok", body["status"])
}

func TestVolunteerQuestLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	child, guardian := ts.Child(t), ts.Guardian(t)
	events := ts.ConnectEvents(t, guardian)

	q := testutil.SeedQuest(t, ts.App.DB, ts.Home.Family.ID)

	// 1. Child volunteers for the open quest.
	body := Expect(t, ts.Post(t, QuestPath(q.ID, "claim"), child), http.StatusOK)
	assert.InDelta(t, 0.10, body["quest"].(map[string]interface{})["volunteer_bonus"], 1e-9)

	// 2. Start, then complete.
	Expect(t, ts.Post(t, QuestPath(q.ID, "start"), child), http.StatusOK)
	Expect(t, ts.Post(t, QuestPath(q.ID, "complete"), child), http.StatusOK)

	// 3. Guardian approves; rewards and level-up come back together.
	body = Expect(t, ts.Post(t, QuestPath(q.ID, "approve"), guardian), http.StatusOK)
	rw := body["reward"].(map[string]interface{})
	assert.Greater(t, rw["xp"].(float64), float64(120), "volunteer bonus stacks on the class bonus")
	assert.Equal(t, float64(2), body["level"].(map[string]interface{})["new_level"])

	// 4. Every transition reached the family stream in order.
	want := []string{quest.EventClaimed, quest.EventStarted, quest.EventCompleted, quest.EventApproved}
	for _, typ := range want {
		ev := events.Next(t, wait)
		assert.Equal(t, typ, ev.Type)
		assert.Equal(t, q.ID, ev.QuestID)
	}

	// 5. The character reflects the approval.
	body = Expect(t, ts.Get(t, "/api/characters/me", child), http.StatusOK)
	hero := body["character"].(map[string]interface{})
	assert.Equal(t, float64(2), hero["level"])
	assert.Equal(t, rw["gold"], hero["gold"])

	// 6. A second approval is rejected and publishes nothing.
	body = Expect(t, ts.Post(t, QuestPath(q.ID, "approve"), guardian), http.StatusConflict)
	assert.Equal(t, "ALREADY_APPROVED", body["kind"])
}

func TestRejectSendsQuestBack(t *testing.T) {
	ts := NewTestServer(t)
	child, guardian := ts.Child(t), ts.Guardian(t)
	q := testutil.SeedQuest(t, ts.App.DB, ts.Home.Family.ID, testutil.Assigned(ts.Home.Child.UserID))

	Expect(t, ts.Post(t, QuestPath(q.ID, "start"), child), http.StatusOK)
	Expect(t, ts.Post(t, QuestPath(q.ID, "complete"), child), http.StatusOK)
	body := Expect(t, ts.Post(t, QuestPath(q.ID, "reject"), guardian), http.StatusOK)
	assert.Equal(t, string(model.QuestStatusInProgress), body["quest"].(map[string]interface{})["status"])

	// Redo and approve.
	Expect(t, ts.Post(t, QuestPath(q.ID, "complete"), child), http.StatusOK)
	Expect(t, ts.Post(t, QuestPath(q.ID, "approve"), guardian), http.StatusOK)
}

func TestDailyStreakAcrossApprovals(t *testing.T) {
	ts := NewTestServer(t)
	guardian := ts.Guardian(t)
	const templateID = 11
	now := time.Now().UTC()

	// Two consecutive days of the same daily chore.
	for _, at := range []time.Time{now.Add(-24 * time.Hour), now} {
		q := testutil.SeedQuest(t, ts.App.DB, ts.Home.Family.ID,
			testutil.Assigned(ts.Home.Child.UserID),
			testutil.Recurring(templateID, model.RecurrenceDaily),
			testutil.WithStatus(model.QuestStatusCompleted),
			testutil.CompletedAt(at))
		Expect(t, ts.Post(t, QuestPath(q.ID, "approve"), guardian), http.StatusOK)
	}

	path := fmt.Sprintf("/api/streaks/%d/%d", ts.Home.Hero.ID, templateID)
	body := Expect(t, ts.Get(t, path, ts.Child(t)), http.StatusOK)
	streak := body["streak"].(map[string]interface{})
	assert.Equal(t, float64(2), streak["current_streak"])
	assert.Equal(t, float64(2), streak["longest_streak"])
}

func TestScheduledExpiryViaAdmin(t *testing.T) {
	ts := NewTestServer(t)
	events := ts.ConnectEvents(t, ts.Child(t))
	past := time.Now().Add(-time.Hour)
	q := testutil.SeedQuest(t, ts.App.DB, ts.Home.Family.ID, testutil.Due(past))

	Expect(t, ts.Post(t, "/api/admin/scheduler/"+app.TaskQuestExpiry+"/run", "", "X-Admin-Key", AdminKey), http.StatusOK)

	ev := events.Next(t, wait)
	assert.Equal(t, quest.EventExpired, ev.Type)
	assert.Equal(t, q.ID, ev.QuestID)
	assert.Equal(t, model.QuestStatusExpired, ev.Status)

	body := Expect(t, ts.Get(t, QuestPath(q.ID, ""), ts.Child(t)), http.StatusOK)
	assert.Equal(t, string(model.QuestStatusExpired), body["quest"].(map[string]interface{})["status"])
}

func TestEventsAreFamilyScoped(t *testing.T) {
	ts := NewTestServer(t)
	outsider := ts.Token(t, quest.Actor{UserID: 77, FamilyID: ts.Home.Family.ID + 100, Role: model.RoleGuardian})
	stranger := ts.ConnectEvents(t, outsider)
	own := ts.ConnectEvents(t, ts.Child(t))

	q := testutil.SeedQuest(t, ts.App.DB, ts.Home.Family.ID)
	Expect(t, ts.Post(t, QuestPath(q.ID, "claim"), ts.Child(t)), http.StatusOK)

	assert.Equal(t, quest.EventClaimed, own.Next(t, wait).Type)
	select {
	case ev := <-stranger.events:
		t.Fatalf("outsider received %s", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventsRequireToken(t *testing.T) {
	ts := NewTestServer(t)
	resp := ts.Get(t, "/api/events?token=nope", "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
