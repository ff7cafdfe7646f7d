package user

import "time"

// Plan is a subscription tier. The expired value is not a tier a user ever
// chooses; it is the degraded state a free plan is rewritten to once its
// trial window has passed.
type Plan string

const (
    PlanFree    Plan = "free"
    PlanBasic   Plan = "basic"
    PlanPremium Plan = "premium"
    PlanExpired Plan = "expired"
)

// TrialDays is the free trial window granted at registration.
const TrialDays = 7

// User is the locally persisted account profile.
type User struct {
    ID        string    `json:"id"`
    Email     string    `json:"email"`
    Name      string    `json:"name"`
    IsAdmin   bool      `json:"is_admin"`
    Plan      Plan      `json:"plan"`
    PlanExpiry time.Time `json:"plan_expiry"`
    CreatedAt time.Time `json:"created_at"`
}

// Paid reports whether the plan is a non-expiring paid tier.
func (p Plan) Paid() bool { return p == PlanBasic || p == PlanPremium }
