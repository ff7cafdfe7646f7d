package entitlement

import (
    "math"
    "time"

    "thetaflow/internal/user"
)

// Feature is a gated surface of the product.
type Feature string

const (
    FeatureLearn   Feature = "learn"
    FeatureMarket  Feature = "market"
    FeatureTrades  Feature = "trades"
    FeaturePremium Feature = "premium"
)

// TrialStatus reports the screener trial clock, which runs from CreatedAt
// and is independent of PlanExpiry.
type TrialStatus struct {
    Expired  bool `json:"expired"`
    DaysLeft int  `json:"days_left"`
}

// Engine answers access questions about a user. It is pure: no I/O, no
// side effects, only the injected clock is read. A nil Now falls back to
// time.Now so the zero value is usable.
type Engine struct {
    Now func() time.Time
}

func (e *Engine) now() time.Time {
    if e.Now != nil { return e.Now() }
    return time.Now()
}

// HasAccess decides whether u may reach the given feature.
//
// Admins pass every check unconditionally. Learn is open to any signed-in
// user. Market and trades are paid-only: free users are denied even inside
// their trial window (the screener's trial gate is TrialStatus, a separate
// clock). An expired plan behaves as free here.
func (e *Engine) HasAccess(u *user.User, f Feature) bool {
    if u == nil { return false }
    if u.IsAdmin { return true }
    switch f {
    case FeatureLearn:
        return true
    case FeatureMarket, FeatureTrades:
        return u.Plan.Paid()
    case FeaturePremium:
        return u.Plan == user.PlanPremium
    }
    return false
}

// PlanExpired reports whether a free plan's window has passed. Always false
// for admins and paid plans. A free plan with a zero (malformed or missing)
// expiry counts as already expired rather than open-ended.
func (e *Engine) PlanExpired(u *user.User) bool {
    if u == nil || u.IsAdmin { return false }
    switch u.Plan {
    case user.PlanFree:
        return u.PlanExpiry.IsZero() || e.now().After(u.PlanExpiry)
    case user.PlanExpired:
        return true
    }
    return false
}

// RemainingDays returns the whole days left on a free plan, floored at zero.
// ok is false for admins and non-free plans, where the value is meaningless.
func (e *Engine) RemainingDays(u *user.User) (days int, ok bool) {
    if u == nil || u.IsAdmin || u.Plan != user.PlanFree { return 0, false }
    if u.PlanExpiry.IsZero() { return 0, true }
    left := u.PlanExpiry.Sub(e.now())
    if left <= 0 { return 0, true }
    return int(math.Ceil(left.Hours() / 24)), true
}

// Trial reports the CreatedAt-based trial clock used by trial-gated screens.
// This is deliberately not unified with PlanExpiry.
func (e *Engine) Trial(u *user.User) TrialStatus {
    if u == nil || u.CreatedAt.IsZero() {
        return TrialStatus{Expired: true}
    }
    end := u.CreatedAt.AddDate(0, 0, user.TrialDays)
    left := end.Sub(e.now())
    if left <= 0 {
        return TrialStatus{Expired: true}
    }
    return TrialStatus{DaysLeft: int(math.Ceil(left.Hours() / 24))}
}
