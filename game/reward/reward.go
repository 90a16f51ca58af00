// Package reward stacks difficulty, class, volunteer and streak multipliers
// onto a quest's base rewards.
package reward

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/model"
)

// Amounts is a bundle of the four reward resources.
type Amounts struct {
	XP    int64 `json:"xp"`
	Gold  int64 `json:"gold"`
	Gems  int64 `json:"gems"`
	Honor int64 `json:"honor"`
}

// Multipliers holds one factor per resource.
type Multipliers struct {
	XP    float64 `mapstructure:"xp" json:"xp"`
	Gold  float64 `mapstructure:"gold" json:"gold"`
	Gems  float64 `mapstructure:"gems" json:"gems"`
	Honor float64 `mapstructure:"honor" json:"honor"`
}

// Neutral is the ×1.0 multiplier set used for classes without a bonus.
var Neutral = Multipliers{XP: 1, Gold: 1, Gems: 1, Honor: 1}

// ClassTable maps a class to its per-resource bonus.
type ClassTable map[model.Class]Multipliers

// DefaultClassTable is the built-in class bonus table. Knights carry no bonus.
func DefaultClassTable() ClassTable {
	return ClassTable{
		model.ClassMage:   {XP: 1.2, Gold: 1, Gems: 1, Honor: 1},
		model.ClassRogue:  {XP: 1, Gold: 1.15, Gems: 1, Honor: 1},
		model.ClassHealer: {XP: 1, Gold: 1, Gems: 1, Honor: 1.25},
		model.ClassRanger: {XP: 1, Gold: 1, Gems: 1.1, Honor: 1},
	}
}

// Validate rejects unknown classes and negative or non-finite factors.
func (t ClassTable) Validate() error {
	for class, m := range t {
		if !class.Valid() {
			return errs.InvalidInput("class bonus", fmt.Sprintf("unknown class %q", class))
		}
		for _, f := range []float64{m.XP, m.Gold, m.Gems, m.Honor} {
			if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
				return errs.InvalidInput("class bonus", fmt.Sprintf("%s has factor %v", class, f))
			}
		}
	}
	return nil
}

// decimal arithmetic context; wide enough that products of int64 bases and
// shortest-form float factors never round before the final floor.
var decCtx = apd.BaseContext.WithPrecision(100)

var difficultyFactors = map[model.Difficulty]*apd.Decimal{
	model.DifficultyEasy:   apd.New(1, 0),
	model.DifficultyMedium: apd.New(15, -1),
	model.DifficultyHard:   apd.New(2, 0),
}

type factors struct {
	xp, gold, gems, honor *apd.Decimal
}

// Resolver computes final payouts against an injected class table.
type Resolver struct {
	table   ClassTable
	classes map[model.Class]factors
	neutral factors
}

// NewResolver validates table and pre-parses its factors.
func NewResolver(table ClassTable) (*Resolver, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	r := &Resolver{
		table:   make(ClassTable, len(table)),
		classes: make(map[model.Class]factors, len(table)),
		neutral: toFactors(Neutral),
	}
	for class, m := range table {
		r.table[class] = m
		r.classes[class] = toFactors(m)
	}
	return r, nil
}

// Multipliers returns the bonus set for class, or Neutral.
func (r *Resolver) Multipliers(class model.Class) Multipliers {
	if m, ok := r.table[class]; ok {
		return m
	}
	return Neutral
}

func (r *Resolver) factorsFor(class model.Class) factors {
	if f, ok := r.classes[class]; ok {
		return f
	}
	return r.neutral
}

// Compute returns floor(base × difficulty × class × (1+volunteer) × (1+streak))
// for each resource. A nil volunteer counts as no bonus.
func (r *Resolver) Compute(base Amounts, difficulty model.Difficulty, class model.Class, volunteer *float64, streak float64) (Amounts, error) {
	diff, ok := difficultyFactors[difficulty]
	if !ok {
		return Amounts{}, errs.InvalidInput("difficulty", string(difficulty))
	}
	if base.XP < 0 || base.Gold < 0 || base.Gems < 0 || base.Honor < 0 {
		return Amounts{}, errs.InvalidInput("base reward", "amounts must be non-negative")
	}
	v := 0.0
	if volunteer != nil {
		v = *volunteer
	}
	if !validFraction(v) {
		return Amounts{}, errs.InvalidInput("volunteer bonus", strconv.FormatFloat(v, 'f', -1, 64))
	}
	if !validFraction(streak) {
		return Amounts{}, errs.InvalidInput("streak bonus", strconv.FormatFloat(streak, 'f', -1, 64))
	}

	common := mul(diff, onePlus(v))
	common = mul(common, onePlus(streak))
	cf := r.factorsFor(class)

	return Amounts{
		XP:    floorProduct(base.XP, mul(common, cf.xp)),
		Gold:  floorProduct(base.Gold, mul(common, cf.gold)),
		Gems:  floorProduct(base.Gems, mul(common, cf.gems)),
		Honor: floorProduct(base.Honor, mul(common, cf.honor)),
	}, nil
}

// Adjusted returns floor(base × class factor) for one resource, the "full"
// reward a class would receive before difficulty and bonuses.
func (r *Resolver) Adjusted(base int64, class model.Class, resource Resource) int64 {
	if base <= 0 {
		return 0
	}
	cf := r.factorsFor(class)
	var f *apd.Decimal
	switch resource {
	case ResourceXP:
		f = cf.xp
	case ResourceGold:
		f = cf.gold
	case ResourceGems:
		f = cf.gems
	default:
		f = cf.honor
	}
	return floorProduct(base, f)
}

// Resource names one of the reward columns.
type Resource string

const (
	ResourceXP    Resource = "xp"
	ResourceGold  Resource = "gold"
	ResourceGems  Resource = "gems"
	ResourceHonor Resource = "honor"
)

func validFraction(f float64) bool {
	return f >= 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toFactors(m Multipliers) factors {
	return factors{
		xp:    decimalOf(m.XP),
		gold:  decimalOf(m.Gold),
		gems:  decimalOf(m.Gems),
		honor: decimalOf(m.Honor),
	}
}

// decimalOf converts f through its shortest decimal form, so 1.2 becomes
// exactly 12×10⁻¹ rather than the nearest binary fraction.
func decimalOf(f float64) *apd.Decimal {
	d, _, err := apd.NewFromString(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		return apd.New(0, 0)
	}
	return d
}

func onePlus(f float64) *apd.Decimal {
	out := new(apd.Decimal)
	_, _ = decCtx.Add(out, apd.New(1, 0), decimalOf(f))
	return out
}

func mul(a, b *apd.Decimal) *apd.Decimal {
	out := new(apd.Decimal)
	_, _ = decCtx.Mul(out, a, b)
	return out
}

func floorProduct(base int64, factor *apd.Decimal) int64 {
	if base <= 0 {
		return 0
	}
	product := mul(apd.New(base, 0), factor)
	floored := new(apd.Decimal)
	if _, err := decCtx.Floor(floored, product); err != nil {
		return math.MaxInt64
	}
	n, err := floored.Int64()
	if err != nil {
		return math.MaxInt64
	}
	return n
}
