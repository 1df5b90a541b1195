package tenant

import "errors"

// ErrLimitExceeded is returned when an authoring operation would exceed the
// tenant's tier cap. It is surfaced to owners only, never to subscribers.
var ErrLimitExceeded = errors.New("tenant: tier limit exceeded")

// Limits caps authoring-side resources per subscription tier.
// A value of -1 means unlimited.
type Limits struct {
	MaxMenus          int
	MaxButtonsPerMenu int
}

var tierLimits = map[Tier]Limits{
	TierFree:     {MaxMenus: 3, MaxButtonsPerMenu: 8},
	TierBasic:    {MaxMenus: -1, MaxButtonsPerMenu: 16},
	TierAdvanced: {MaxMenus: -1, MaxButtonsPerMenu: -1},
	TierBusiness: {MaxMenus: -1, MaxButtonsPerMenu: -1},
}

// LimitsFor returns the caps for a tier, defaulting to the free tier for
// unknown values.
func LimitsFor(tier Tier) Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// Allows reports whether a current count is below the cap.
func allows(cap, current int) bool {
	if cap < 0 {
		return true
	}
	return current < cap
}
