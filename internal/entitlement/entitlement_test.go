package entitlement

import (
    "testing"
    "time"

    "thetaflow/internal/user"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func engineAt(now time.Time) *Engine {
    return &Engine{Now: func() time.Time { return now }}
}

func TestHasAccess(t *testing.T) {
    freshFree := &user.User{Plan: user.PlanFree, PlanExpiry: t0.AddDate(0, 0, 7), CreatedAt: t0}
    cases := []struct {
        name    string
        user    *user.User
        feature Feature
        want    bool
    }{
        {"nil user denied", nil, FeatureLearn, false},
        {"admin learn", &user.User{IsAdmin: true, Plan: user.PlanExpired}, FeatureLearn, true},
        {"admin market", &user.User{IsAdmin: true, Plan: user.PlanExpired}, FeatureMarket, true},
        {"admin trades", &user.User{IsAdmin: true, Plan: user.PlanExpired}, FeatureTrades, true},
        {"admin premium", &user.User{IsAdmin: true, Plan: user.PlanFree}, FeaturePremium, true},
        {"free learn", freshFree, FeatureLearn, true},
        {"free market denied inside trial", freshFree, FeatureMarket, false},
        {"free trades denied inside trial", freshFree, FeatureTrades, false},
        {"free premium denied", freshFree, FeaturePremium, false},
        {"expired learn", &user.User{Plan: user.PlanExpired}, FeatureLearn, true},
        {"expired market denied", &user.User{Plan: user.PlanExpired}, FeatureMarket, false},
        {"expired trades denied", &user.User{Plan: user.PlanExpired}, FeatureTrades, false},
        {"basic market", &user.User{Plan: user.PlanBasic}, FeatureMarket, true},
        {"basic trades", &user.User{Plan: user.PlanBasic}, FeatureTrades, true},
        {"basic premium denied", &user.User{Plan: user.PlanBasic}, FeaturePremium, false},
        {"premium market", &user.User{Plan: user.PlanPremium}, FeatureMarket, true},
        {"premium premium", &user.User{Plan: user.PlanPremium}, FeaturePremium, true},
        {"unknown feature denied", &user.User{Plan: user.PlanPremium}, Feature("export"), false},
    }
    e := engineAt(t0)
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := e.HasAccess(tc.user, tc.feature); got != tc.want {
                t.Fatalf("HasAccess(%v, %q) = %v, want %v", tc.user, tc.feature, got, tc.want)
            }
        })
    }
}

func TestPlanExpired(t *testing.T) {
    cases := []struct {
        name string
        user *user.User
        now  time.Time
        want bool
    }{
        {"nil user", nil, t0, false},
        {"free inside window", &user.User{Plan: user.PlanFree, PlanExpiry: t0.AddDate(0, 0, 7)}, t0.AddDate(0, 0, 3), false},
        {"free at boundary", &user.User{Plan: user.PlanFree, PlanExpiry: t0.AddDate(0, 0, 7)}, t0.AddDate(0, 0, 7), false},
        {"free past window", &user.User{Plan: user.PlanFree, PlanExpiry: t0.AddDate(0, 0, 7)}, t0.AddDate(0, 0, 8), true},
        {"free zero expiry counts expired", &user.User{Plan: user.PlanFree}, t0, true},
        {"expired plan", &user.User{Plan: user.PlanExpired, PlanExpiry: t0.AddDate(0, 0, 100)}, t0, true},
        {"basic never expires here", &user.User{Plan: user.PlanBasic, PlanExpiry: t0.AddDate(0, 0, -30)}, t0, false},
        {"premium never expires here", &user.User{Plan: user.PlanPremium}, t0, false},
        {"admin never expires", &user.User{IsAdmin: true, Plan: user.PlanFree}, t0, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := engineAt(tc.now).PlanExpired(tc.user); got != tc.want {
                t.Fatalf("PlanExpired = %v, want %v", got, tc.want)
            }
        })
    }
}

func TestRemainingDays(t *testing.T) {
    u := &user.User{Plan: user.PlanFree, PlanExpiry: t0.AddDate(0, 0, 7)}

    cases := []struct {
        name     string
        now      time.Time
        wantDays int
        wantOK   bool
    }{
        {"at registration", t0, 7, true},
        {"partial day rounds up", t0.Add(12 * time.Hour), 7, true},
        {"one day in", t0.AddDate(0, 0, 1), 6, true},
        {"last hours round to one", t0.AddDate(0, 0, 6).Add(23 * time.Hour), 1, true},
        {"past expiry floors at zero", t0.AddDate(0, 0, 8), 0, true},
        {"far past expiry still zero", t0.AddDate(0, 0, 100), 0, true},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            days, ok := engineAt(tc.now).RemainingDays(u)
            if ok != tc.wantOK || days != tc.wantDays {
                t.Fatalf("RemainingDays = (%d, %v), want (%d, %v)", days, ok, tc.wantDays, tc.wantOK)
            }
        })
    }

    if _, ok := engineAt(t0).RemainingDays(&user.User{Plan: user.PlanBasic}); ok {
        t.Fatal("paid plan should not report remaining days")
    }
    if _, ok := engineAt(t0).RemainingDays(&user.User{IsAdmin: true, Plan: user.PlanFree, PlanExpiry: t0.AddDate(0, 0, 7)}); ok {
        t.Fatal("admin should not report remaining days")
    }
    if days, ok := engineAt(t0).RemainingDays(&user.User{Plan: user.PlanFree}); !ok || days != 0 {
        t.Fatalf("zero expiry: got (%d, %v), want (0, true)", days, ok)
    }
}

func TestRemainingDaysMonotonic(t *testing.T) {
    u := &user.User{Plan: user.PlanFree, PlanExpiry: t0.AddDate(0, 0, 7)}
    prev := 8
    for h := 0; h <= 24*10; h += 6 {
        days, ok := engineAt(t0.Add(time.Duration(h) * time.Hour)).RemainingDays(u)
        if !ok {
            t.Fatalf("hour %d: expected ok", h)
        }
        if days > prev {
            t.Fatalf("hour %d: days went up from %d to %d", h, prev, days)
        }
        if days < 0 {
            t.Fatalf("hour %d: negative days %d", h, days)
        }
        prev = days
    }
}

func TestTrialClockIndependentOfPlanExpiry(t *testing.T) {
    // PlanExpiry is extended far beyond the CreatedAt trial window; the
    // trial clock must expire on its own schedule anyway.
    u := &user.User{Plan: user.PlanFree, CreatedAt: t0, PlanExpiry: t0.AddDate(0, 0, 30)}

    st := engineAt(t0.AddDate(0, 0, 3)).Trial(u)
    if st.Expired || st.DaysLeft != 4 {
        t.Fatalf("day 3: got %+v, want 4 days left", st)
    }
    st = engineAt(t0.AddDate(0, 0, 8)).Trial(u)
    if !st.Expired {
        t.Fatalf("day 8: trial should be expired, got %+v", st)
    }
    if engineAt(t0.AddDate(0, 0, 8)).PlanExpired(u) {
        t.Fatal("plan window still open, PlanExpired must be false")
    }
}

func TestTrialZeroCreatedAt(t *testing.T) {
    st := engineAt(t0).Trial(&user.User{Plan: user.PlanFree})
    if !st.Expired {
        t.Fatalf("zero CreatedAt should read as expired, got %+v", st)
    }
    if st := engineAt(t0).Trial(nil); !st.Expired {
        t.Fatalf("nil user should read as expired, got %+v", st)
    }
}
