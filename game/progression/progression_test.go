package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/hearthquest/errs"
)

func newEvaluator(t *testing.T, c Curve) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(c)
	require.NoError(t, err)
	return e
}

func TestDefaultCurve(t *testing.T) {
	c := DefaultCurve()
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultMaxLevel, c.MaxLevel())
	assert.Equal(t, Curve{100, 300, 600, 1000}, c[:4])

	need, ok := c.Threshold(1)
	assert.True(t, ok)
	assert.Equal(t, int64(0), need)

	need, ok = c.Threshold(100)
	assert.True(t, ok)
	assert.Equal(t, int64(50*99*100), need)

	_, ok = c.Threshold(101)
	assert.False(t, ok)
}

func TestXPToNext(t *testing.T) {
	c := Curve{100, 300, 600}

	left, ok := c.XPToNext(1, 0)
	assert.True(t, ok)
	assert.Equal(t, int64(100), left)

	left, ok = c.XPToNext(2, 120)
	assert.True(t, ok)
	assert.Equal(t, int64(180), left)

	_, ok = c.XPToNext(4, 900)
	assert.False(t, ok)
}

func TestApply_NoLevelUp(t *testing.T) {
	e := newEvaluator(t, DefaultCurve())
	res := e.Apply(1, 10, 50)
	assert.Equal(t, Result{PreviousLevel: 1, NewLevel: 1, NewXP: 60}, res)
}

func TestApply_ExactThreshold(t *testing.T) {
	e := newEvaluator(t, DefaultCurve())
	res := e.Apply(1, 40, 60)
	assert.Equal(t, 2, res.NewLevel)
	assert.Equal(t, int64(100), res.NewXP)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.LevelsGained)
}

func TestApply_ThresholdTable(t *testing.T) {
	e := newEvaluator(t, Curve{100, 300, 600})

	cases := []struct {
		level     int
		xp, gain  int64
		wantLevel int
	}{
		{1, 0, 99, 1},
		{1, 0, 300, 3},
		{1, 0, 599, 3},
		{2, 150, 150, 3},
		{3, 300, 300, 4},
		{1, 0, 10_000, 4},
	}
	for _, tc := range cases {
		res := e.Apply(tc.level, tc.xp, tc.gain)
		assert.Equal(t, tc.wantLevel, res.NewLevel, "level %d xp %d +%d", tc.level, tc.xp, tc.gain)
		assert.Equal(t, tc.xp+tc.gain, res.NewXP)
		assert.Equal(t, tc.wantLevel > tc.level, res.LeveledUp)
	}
}

func TestApply_NonArithmeticCurve(t *testing.T) {
	e := newEvaluator(t, Curve{50, 60, 500, 501, 5000})

	res := e.Apply(1, 0, 501)
	assert.Equal(t, 5, res.NewLevel, "crosses four thresholds in order")
	assert.Equal(t, 4, res.LevelsGained)

	res = e.Apply(2, 55, 4)
	assert.Equal(t, 2, res.NewLevel)
	res = e.Apply(2, 55, 5)
	assert.Equal(t, 3, res.NewLevel)
}

func TestApply_MaxLevelAccumulates(t *testing.T) {
	e := newEvaluator(t, Curve{100, 300})
	res := e.Apply(2, 150, 1000)
	assert.Equal(t, 3, res.NewLevel)
	assert.Equal(t, int64(1150), res.NewXP)

	res = e.Apply(3, 1150, 5000)
	assert.Equal(t, 3, res.NewLevel)
	assert.Equal(t, int64(6150), res.NewXP)
	assert.False(t, res.LeveledUp)
}

func TestApply_NeverLosesLevels(t *testing.T) {
	e := newEvaluator(t, Curve{100, 300})
	res := e.Apply(3, 0, 10)
	assert.Equal(t, 3, res.NewLevel)
	assert.False(t, res.LeveledUp)
}

func TestApply_ClampsInputs(t *testing.T) {
	e := newEvaluator(t, Curve{100, 300})

	res := e.Apply(0, -5, 20)
	assert.Equal(t, 1, res.NewLevel)
	assert.Equal(t, int64(20), res.NewXP)

	res = e.Apply(1, 10, -20)
	assert.Equal(t, int64(10), res.NewXP)

	res = e.Apply(3, math.MaxInt64-1, 10)
	assert.Equal(t, int64(math.MaxInt64), res.NewXP)
}

func TestFromCosts(t *testing.T) {
	assert.Equal(t, Curve{100, 300, 600}, FromCosts([]int64{100, 200, 300}))
	assert.Equal(t, DefaultCurve()[:5], FromCosts([]int64{100, 200, 300, 400, 500}))

	sat := FromCosts([]int64{math.MaxInt64 - 1, 5})
	assert.Equal(t, int64(math.MaxInt64), sat[1])
}

func TestCurve_Validate(t *testing.T) {
	assert.ErrorIs(t, Curve{}.Validate(), errs.ErrInvalidInput)
	assert.ErrorIs(t, Curve{100, 0}.Validate(), errs.ErrInvalidInput)
	assert.ErrorIs(t, Curve{100, 100}.Validate(), errs.ErrInvalidInput)
	assert.NoError(t, Curve{1, 2, 3}.Validate())

	_, err := NewEvaluator(Curve{300, 200})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestEvaluator_CurveIsCopied(t *testing.T) {
	c := Curve{100, 200}
	e := newEvaluator(t, c)
	c[0] = 1
	assert.Equal(t, Curve{100, 200}, e.Curve())
}
