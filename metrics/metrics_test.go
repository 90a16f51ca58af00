package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAccumulate(t *testing.T) {
	before := testutil.ToFloat64(RewardPaid.WithLabelValues("xp"))
	RewardPaid.WithLabelValues("xp").Add(180)
	assert.Equal(t, before+180, testutil.ToFloat64(RewardPaid.WithLabelValues("xp")))

	before = testutil.ToFloat64(QuestTransitions.WithLabelValues("approve", "APPROVED"))
	QuestTransitions.WithLabelValues("approve", "APPROVED").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(QuestTransitions.WithLabelValues("approve", "APPROVED")))
}
