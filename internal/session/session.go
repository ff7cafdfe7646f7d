package session

import (
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "thetaflow/internal/entitlement"
    "thetaflow/internal/user"
)

// UserStore persists the single local account profile. Load returns
// (nil, nil) when no prior state exists or the stored blob is unreadable.
type UserStore interface {
    Load() (*user.User, error)
    Save(*user.User) error
    Clear() error
}

// Service owns the account lifecycle: registration, login, logout and
// session restore. Plan transitions other than free->expired come from
// external upgrade flows and never happen here.
type Service struct {
    Store      UserStore
    Engine     *entitlement.Engine
    AdminEmail string
    Now        func() time.Time
}

func (s *Service) now() time.Time {
    if s.Now != nil { return s.Now() }
    return time.Now()
}

func (s *Service) engine() *entitlement.Engine {
    if s.Engine != nil { return s.Engine }
    return &entitlement.Engine{}
}

// Register creates and persists a new profile. Free plans get a trial
// window of exactly TrialDays from creation.
func (s *Service) Register(email, name string, plan user.Plan) (*user.User, error) {
    email = strings.TrimSpace(email)
    if email == "" {
        return nil, fmt.Errorf("email required")
    }
    if plan == "" { plan = user.PlanFree }
    if name == "" { name = nameFromEmail(email) }
    now := s.now()
    u := &user.User{
        ID:         uuid.NewString(),
        Email:      email,
        Name:       name,
        IsAdmin:    s.AdminEmail != "" && strings.EqualFold(email, s.AdminEmail),
        Plan:       plan,
        PlanExpiry: now.AddDate(0, 0, user.TrialDays),
        CreatedAt:  now,
    }
    if err := s.Store.Save(u); err != nil {
        return nil, fmt.Errorf("persist profile: %w", err)
    }
    return u, nil
}

// Login restores the persisted profile for the email, or registers a fresh
// free-plan profile when none matches. The store holds a single profile, so
// logging in under a different email replaces whatever was saved before.
// Real credential checks live in an external auth collaborator.
func (s *Service) Login(email string) (*user.User, error) {
    existing, err := s.Store.Load()
    if err != nil {
        return nil, err
    }
    if existing != nil && strings.EqualFold(existing.Email, email) {
        return s.Restore()
    }
    return s.Register(email, "", user.PlanFree)
}

// Logout clears the persisted profile.
func (s *Service) Logout() error { return s.Store.Clear() }

// Restore loads the saved profile and applies the lazy free->expired
// transition, rewriting the stored plan at most once per restore. It never
// fails because of a missing or corrupt profile; that is simply a logged-out
// session.
func (s *Service) Restore() (*user.User, error) {
    u, err := s.Store.Load()
    if err != nil || u == nil {
        return nil, err
    }
    if u.Plan == user.PlanFree && s.engine().PlanExpired(u) {
        u.Plan = user.PlanExpired
        if err := s.Store.Save(u); err != nil {
            return nil, fmt.Errorf("persist expiry: %w", err)
        }
    }
    return u, nil
}

func nameFromEmail(email string) string {
    if i := strings.Index(email, "@"); i > 0 {
        return email[:i]
    }
    return email
}
