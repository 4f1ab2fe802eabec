// Package combat implements the duel engine's pure derived-stat, chance,
// and damage formulas (spec §4.1, C1). No I/O, no randomness source owned
// here — RollDamage takes an rng and returns a real number; rounding and
// outcome classification belong to the turn engine (internal/engine).
package combat

import (
	"math"

	"forgefight.gg/duel-server/internal/battledom"
)

// DerivedCombatStats are the per-turn values computed from a player's raw
// stats and the battle's frozen CombatBalance.
type DerivedCombatStats struct {
	DamageMin float64
	DamageMax float64
	MfDodge   float64
	MfAntiDodge float64
	MfCrit      float64
	MfAntiCrit  float64
}

// HpMax computes a player's maximum HP. Computed once at battle
// initialization and frozen into state; never recomputed mid-battle.
func HpMax(stats battledom.PlayerStats, balance battledom.CombatBalance) int {
	raw := balance.HpBase + float64(stats.Stamina)*balance.HpPerStamina
	return int(math.Round(raw))
}

// DeriveStats computes the damage range and magic-find-style dodge/crit
// inputs for one player. Recomputed fresh each time a turn is resolved —
// unlike HpMax, derived combat stats are not frozen.
func DeriveStats(stats battledom.PlayerStats, balance battledom.CombatBalance) DerivedCombatStats {
	baseDamage := balance.BaseWeaponDamage +
		float64(stats.Strength)*balance.KStr +
		float64(stats.Agility)*balance.KAgi +
		float64(stats.Intellect)*balance.KInt

	mfDodge := float64(stats.Agility) * balance.MfPerAgi
	mfCrit := float64(stats.Intellect) * balance.MfPerInt

	return DerivedCombatStats{
		DamageMin: math.Floor(baseDamage * balance.SpreadMin),
		DamageMax: math.Ceil(baseDamage * balance.SpreadMax),
		// MfAntiDodge/MfAntiCrit mirror MfDodge/MfCrit: the spec defines
		// both members of each pair from the same per-stat coefficient.
		MfDodge:     mfDodge,
		MfAntiDodge: mfDodge,
		MfCrit:      mfCrit,
		MfAntiCrit:  mfCrit,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chance evaluates the shared dodge/crit curve:
//
//	raw    = base + scale*diff/(|diff|+kBase)
//	chance = clamp(raw, min, max)
func chance(curve battledom.ChanceCurve, diff float64) float64 {
	raw := curve.Base + curve.Scale*diff/(math.Abs(diff)+curve.KBase)
	return clampFloat(raw, curve.Min, curve.Max)
}

// DodgeChance computes the defender's chance to dodge an incoming attack.
// diff = defender.MfDodge - attacker.MfAntiDodge.
func DodgeChance(curve battledom.ChanceCurve, defender, attacker DerivedCombatStats) float64 {
	diff := defender.MfDodge - attacker.MfAntiDodge
	return chance(curve, diff)
}

// CritChance computes the attacker's chance to land a critical hit.
// diff = attacker.MfCrit - defender.MfAntiCrit.
func CritChance(curve battledom.ChanceCurve, attacker, defender DerivedCombatStats) float64 {
	diff := attacker.MfCrit - defender.MfAntiCrit
	return chance(curve, diff)
}

// RollDamage draws a uniform real number in [min, max) from rng, returning
// min when max <= min. No early
// rounding: the turn engine rounds AwayFromZero once, at the very end of
// the resolution pipeline (spec §9 resolves the conflicting source
// revisions in favor of this rule).
func RollDamage(rng *Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}

// RoundAwayFromZero rounds v to the nearest integer, breaking ties away
// from zero (never toward it), matching the authoritative rounding rule.
func RoundAwayFromZero(v float64) int {
	if v >= 0 {
		return int(math.Floor(v + 0.5))
	}
	return int(math.Ceil(v - 0.5))
}
