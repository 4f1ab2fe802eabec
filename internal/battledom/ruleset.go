package battledom

// CritMode controls how a critical hit interacts with a matched block.
type CritMode string

const (
	CritModeBypassBlock CritMode = "BypassBlock"
	CritModeHybrid      CritMode = "Hybrid"
)

// ChanceCurve parameterizes the dodge/crit probability curve:
//
//	raw   = base + scale*diff/(|diff|+kBase)
//	chance = clamp(raw, min, max)
type ChanceCurve struct {
	Base  float64 `json:"base"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Scale float64 `json:"scale"`
	KBase float64 `json:"k_base"`
}

// CombatBalance carries every tunable coefficient the combat math (C1) and
// turn engine (C2) read. It is part of a Ruleset and, once normalized, is
// frozen into the Battle record.
type CombatBalance struct {
	HpBase        float64 `json:"hp_base"`
	HpPerStamina  float64 `json:"hp_per_stamina"`

	BaseWeaponDamage float64 `json:"base_weapon_damage"`
	KStr             float64 `json:"k_str"`
	KAgi             float64 `json:"k_agi"`
	KInt             float64 `json:"k_int"`

	SpreadMin float64 `json:"spread_min"`
	SpreadMax float64 `json:"spread_max"`

	MfPerAgi float64 `json:"mf_per_agi"`
	MfPerInt float64 `json:"mf_per_int"`

	DodgeCurve ChanceCurve `json:"dodge_curve"`
	CritCurve  ChanceCurve `json:"crit_curve"`

	CritMode              CritMode `json:"crit_mode"`
	CritMultiplier        float64  `json:"crit_multiplier"`
	HybridBlockMultiplier float64  `json:"hybrid_block_multiplier"`
}

// Ruleset is the value object governing one battle. It is normalized once
// at initialization (defaults applied, fields clamped) and never re-read
// from configuration afterward — see DESIGN.md "Frozen ruleset".
type Ruleset struct {
	Version        int           `json:"version"`
	TurnSeconds    int           `json:"turn_seconds"`
	NoActionLimit  int           `json:"no_action_limit"`
	Seed           int64         `json:"seed"`
	CombatBalance  CombatBalance `json:"combat_balance"`
}

const (
	DefaultTurnSeconds   = 10
	MinTurnSeconds       = 1
	MaxTurnSeconds       = 60

	DefaultNoActionLimit = 3
	MinNoActionLimit     = 1
	MaxNoActionLimit     = 10
)

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize applies defaults and clamps bounded fields, returning a fresh
// Ruleset. Idempotent: Normalize(Normalize(r)) == Normalize(r). balance is
// the CombatBalance supplied by the configured balance provider (§4.4 step
// 1); it is copied in as-is — only TurnSeconds/NoActionLimit are clamped,
// per spec the balance's own invariants (SpreadMin < SpreadMax, etc.) are
// the provider's responsibility and are validated by ValidateCombatBalance.
func Normalize(in Ruleset, balance CombatBalance) Ruleset {
	out := in
	out.CombatBalance = balance

	if out.TurnSeconds <= 0 {
		out.TurnSeconds = DefaultTurnSeconds
	}
	out.TurnSeconds = clampInt(out.TurnSeconds, MinTurnSeconds, MaxTurnSeconds)

	if out.NoActionLimit <= 0 {
		out.NoActionLimit = DefaultNoActionLimit
	}
	out.NoActionLimit = clampInt(out.NoActionLimit, MinNoActionLimit, MaxNoActionLimit)

	return out
}

// ValidateCombatBalance reports whether balance satisfies the spread
// invariant mandated by the spec: SpreadMin < SpreadMax, neither bounded
// above by 1 (a revision that forbade multipliers > 1 is explicitly
// overridden — see spec §9 open questions).
func ValidateCombatBalance(b CombatBalance) bool {
	return b.SpreadMin >= 0 && b.SpreadMax >= 0 && b.SpreadMin < b.SpreadMax
}

// IsValidForInit reports whether a raw incoming ruleset descriptor is
// usable at all (spec §4.4 step 1: "Invalid ruleset (null, non-positive
// TurnSeconds or Version) => log and return"). A zero TurnSeconds/
// NoActionLimit is treated as "unset" and resolved by Normalize's
// defaulting; only a negative value or a non-positive Version is rejected
// outright — see DESIGN.md for this Open Question's resolution.
func (r Ruleset) IsValidForInit() bool {
	if r.Version <= 0 {
		return false
	}
	if r.TurnSeconds < 0 || r.NoActionLimit < 0 {
		return false
	}
	return true
}
