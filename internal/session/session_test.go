package session

import (
    "errors"
    "testing"
    "time"

    "thetaflow/internal/entitlement"
    "thetaflow/internal/user"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memStore keeps the profile in memory and counts writes.
type memStore struct {
    u       *user.User
    saves   int
    saveErr error
}

func (m *memStore) Load() (*user.User, error) {
    if m.u == nil { return nil, nil }
    cp := *m.u
    return &cp, nil
}

func (m *memStore) Save(u *user.User) error {
    if m.saveErr != nil { return m.saveErr }
    m.saves++
    cp := *u
    m.u = &cp
    return nil
}

func (m *memStore) Clear() error {
    m.u = nil
    return nil
}

func serviceAt(now time.Time, store UserStore) *Service {
    clock := func() time.Time { return now }
    return &Service{
        Store:      store,
        Engine:     &entitlement.Engine{Now: clock},
        AdminEmail: "admin@example.com",
        Now:        clock,
    }
}

func TestRegister(t *testing.T) {
    store := &memStore{}
    svc := serviceAt(t0, store)

    u, err := svc.Register("jamie@example.com", "", "")
    if err != nil {
        t.Fatalf("register: %v", err)
    }
    if u.ID == "" {
        t.Fatal("expected generated id")
    }
    if u.Plan != user.PlanFree {
        t.Fatalf("default plan = %q, want free", u.Plan)
    }
    if u.Name != "jamie" {
        t.Fatalf("derived name = %q, want jamie", u.Name)
    }
    if got, want := u.PlanExpiry, t0.AddDate(0, 0, user.TrialDays); !got.Equal(want) {
        t.Fatalf("plan expiry = %v, want %v", got, want)
    }
    if !u.CreatedAt.Equal(t0) {
        t.Fatalf("created at = %v, want %v", u.CreatedAt, t0)
    }
    if u.IsAdmin {
        t.Fatal("regular email must not be admin")
    }
    if store.u == nil {
        t.Fatal("profile was not persisted")
    }
}

func TestRegisterAdminEmail(t *testing.T) {
    svc := serviceAt(t0, &memStore{})
    u, err := svc.Register("Admin@Example.COM", "Ops", user.PlanPremium)
    if err != nil {
        t.Fatalf("register: %v", err)
    }
    if !u.IsAdmin {
        t.Fatal("admin email match must be case-insensitive")
    }
    if u.Plan != user.PlanPremium {
        t.Fatalf("plan = %q, want premium", u.Plan)
    }
}

func TestRegisterEmptyEmail(t *testing.T) {
    svc := serviceAt(t0, &memStore{})
    if _, err := svc.Register("  ", "", ""); err == nil {
        t.Fatal("expected error for blank email")
    }
}

func TestRestoreLazyExpiry(t *testing.T) {
    store := &memStore{u: &user.User{
        ID:         "u1",
        Email:      "jamie@example.com",
        Plan:       user.PlanFree,
        PlanExpiry: t0.AddDate(0, 0, 7),
        CreatedAt:  t0,
    }}

    // Inside the window: no rewrite.
    svc := serviceAt(t0.AddDate(0, 0, 3), store)
    u, err := svc.Restore()
    if err != nil {
        t.Fatalf("restore: %v", err)
    }
    if u.Plan != user.PlanFree {
        t.Fatalf("plan = %q, want free", u.Plan)
    }
    if store.saves != 0 {
        t.Fatalf("unexpected save inside trial window: %d", store.saves)
    }

    // Past the window: rewritten to expired and persisted exactly once.
    svc = serviceAt(t0.AddDate(0, 0, 8), store)
    u, err = svc.Restore()
    if err != nil {
        t.Fatalf("restore: %v", err)
    }
    if u.Plan != user.PlanExpired {
        t.Fatalf("plan = %q, want expired", u.Plan)
    }
    if store.saves != 1 {
        t.Fatalf("saves = %d, want 1", store.saves)
    }
    if store.u.Plan != user.PlanExpired {
        t.Fatalf("stored plan = %q, want expired", store.u.Plan)
    }

    // Restoring again finds the expired plan already persisted.
    u, err = svc.Restore()
    if err != nil {
        t.Fatalf("second restore: %v", err)
    }
    if u.Plan != user.PlanExpired {
        t.Fatalf("plan = %q, want expired", u.Plan)
    }
    if store.saves != 1 {
        t.Fatalf("saves after second restore = %d, want 1", store.saves)
    }
}

func TestRestorePaidPlanUntouched(t *testing.T) {
    store := &memStore{u: &user.User{
        Email:      "jamie@example.com",
        Plan:       user.PlanBasic,
        PlanExpiry: t0.AddDate(0, 0, -30),
        CreatedAt:  t0.AddDate(0, 0, -60),
    }}
    u, err := serviceAt(t0, store).Restore()
    if err != nil {
        t.Fatalf("restore: %v", err)
    }
    if u.Plan != user.PlanBasic {
        t.Fatalf("plan = %q, want basic", u.Plan)
    }
    if store.saves != 0 {
        t.Fatalf("saves = %d, want 0", store.saves)
    }
}

func TestRestoreNoProfile(t *testing.T) {
    u, err := serviceAt(t0, &memStore{}).Restore()
    if err != nil || u != nil {
        t.Fatalf("restore of empty store = (%v, %v), want (nil, nil)", u, err)
    }
}

func TestRestoreSaveFailure(t *testing.T) {
    store := &memStore{
        u:       &user.User{Email: "x@y.z", Plan: user.PlanFree, PlanExpiry: t0.AddDate(0, 0, -1)},
        saveErr: errors.New("disk full"),
    }
    if _, err := serviceAt(t0, store).Restore(); err == nil {
        t.Fatal("expected persist error to surface")
    }
}

func TestRestoreZeroValueService(t *testing.T) {
    // Only the store is wired; entitlement falls back to a default engine
    // on the real clock instead of panicking.
    store := &memStore{
        u: &user.User{Email: "x@y.z", Plan: user.PlanFree, PlanExpiry: t0},
    }
    svc := &Service{Store: store}

    u, err := svc.Restore()
    if err != nil {
        t.Fatalf("restore: %v", err)
    }
    if u.Plan != user.PlanExpired {
        t.Fatalf("plan = %q, want expired for a long-past expiry", u.Plan)
    }
}

func TestLogin(t *testing.T) {
    store := &memStore{u: &user.User{
        ID:         "u1",
        Email:      "jamie@example.com",
        Plan:       user.PlanPremium,
        CreatedAt:  t0,
        PlanExpiry: t0.AddDate(0, 0, 7),
    }}
    svc := serviceAt(t0.AddDate(0, 0, 1), store)

    // Matching email restores the existing profile.
    u, err := svc.Login("JAMIE@example.com")
    if err != nil {
        t.Fatalf("login: %v", err)
    }
    if u.ID != "u1" || u.Plan != user.PlanPremium {
        t.Fatalf("login restored %+v, want existing premium profile", u)
    }

    // A different email registers a fresh free profile.
    u, err = svc.Login("other@example.com")
    if err != nil {
        t.Fatalf("login other: %v", err)
    }
    if u.ID == "u1" {
        t.Fatal("expected a fresh profile, got the old one")
    }
    if u.Plan != user.PlanFree {
        t.Fatalf("plan = %q, want free", u.Plan)
    }
    // The single-profile store now holds the new account; the old one is
    // gone rather than recoverable.
    if store.u == nil || store.u.Email != "other@example.com" {
        t.Fatalf("stored profile = %+v, want the freshly registered one", store.u)
    }
}

func TestLogout(t *testing.T) {
    store := &memStore{u: &user.User{Email: "jamie@example.com"}}
    svc := serviceAt(t0, store)
    if err := svc.Logout(); err != nil {
        t.Fatalf("logout: %v", err)
    }
    if u, _ := svc.Restore(); u != nil {
        t.Fatalf("restore after logout = %+v, want nil", u)
    }
}
