package screener

// Criteria is the full set of filter bounds a screener run applies. All
// bounds are inclusive and every bound must pass for a candidate to emit.
type Criteria struct {
    MinPrice             float64 `json:"min_price"`
    MaxPrice             float64 `json:"max_price"`
    MinVolume            int64   `json:"min_volume"`
    MinMarketCap         float64 `json:"min_market_cap"`
    MaxBidAskSpread      float64 `json:"max_bid_ask_spread"`
    MinImpliedVolatility float64 `json:"min_implied_volatility"`
    MaxImpliedVolatility float64 `json:"max_implied_volatility"`
    MinDaysToExpiry      int     `json:"min_days_to_expiry"`
    MaxDaysToExpiry      int     `json:"max_days_to_expiry"`
}

// Overrides adjusts individual bounds of a base Criteria. Nil fields keep
// the base value, so a request tweaking one bound leaves the rest of the
// selected strategy intact.
type Overrides struct {
    MinPrice             *float64 `json:"min_price,omitempty"`
    MaxPrice             *float64 `json:"max_price,omitempty"`
    MinVolume            *int64   `json:"min_volume,omitempty"`
    MinMarketCap         *float64 `json:"min_market_cap,omitempty"`
    MaxBidAskSpread      *float64 `json:"max_bid_ask_spread,omitempty"`
    MinImpliedVolatility *float64 `json:"min_implied_volatility,omitempty"`
    MaxImpliedVolatility *float64 `json:"max_implied_volatility,omitempty"`
    MinDaysToExpiry      *int     `json:"min_days_to_expiry,omitempty"`
    MaxDaysToExpiry      *int     `json:"max_days_to_expiry,omitempty"`
}

// Apply returns base with every non-nil override written over it.
func (o *Overrides) Apply(base Criteria) Criteria {
    if o == nil {
        return base
    }
    if o.MinPrice != nil {
        base.MinPrice = *o.MinPrice
    }
    if o.MaxPrice != nil {
        base.MaxPrice = *o.MaxPrice
    }
    if o.MinVolume != nil {
        base.MinVolume = *o.MinVolume
    }
    if o.MinMarketCap != nil {
        base.MinMarketCap = *o.MinMarketCap
    }
    if o.MaxBidAskSpread != nil {
        base.MaxBidAskSpread = *o.MaxBidAskSpread
    }
    if o.MinImpliedVolatility != nil {
        base.MinImpliedVolatility = *o.MinImpliedVolatility
    }
    if o.MaxImpliedVolatility != nil {
        base.MaxImpliedVolatility = *o.MaxImpliedVolatility
    }
    if o.MinDaysToExpiry != nil {
        base.MinDaysToExpiry = *o.MinDaysToExpiry
    }
    if o.MaxDaysToExpiry != nil {
        base.MaxDaysToExpiry = *o.MaxDaysToExpiry
    }
    return base
}

// Strategy is a named preset of filter bounds. Selecting one replaces the
// active criteria wholesale; callers may then override individual bounds.
type Strategy struct {
    Name        string   `json:"name"`
    Description string   `json:"description"`
    Criteria    Criteria `json:"criteria"`
}

// Strategies are statically defined; none are created or destroyed at
// runtime.
var Strategies = map[string]Strategy{
    "wheeling": {
        Name:        "Wheeling",
        Description: "Sell cash-secured puts, take assignment, sell covered calls. Wants liquid mid-priced names with elevated but not extreme IV and 45-90 day tenors.",
        Criteria: Criteria{
            MinPrice:             20,
            MaxPrice:             200,
            MinVolume:            2_000_000,
            MinMarketCap:         2_000_000_000,
            MaxBidAskSpread:      0.05,
            MinImpliedVolatility: 0.25,
            MaxImpliedVolatility: 0.6,
            MinDaysToExpiry:      45,
            MaxDaysToExpiry:      90,
        },
    },
    "iron-condor": {
        Name:        "Iron Condor",
        Description: "Defined-risk range-bound premium selling. Wants calm, very liquid underlyings and 30-60 day tenors.",
        Criteria: Criteria{
            MinPrice:             50,
            MaxPrice:             500,
            MinVolume:            5_000_000,
            MinMarketCap:         10_000_000_000,
            MaxBidAskSpread:      0.03,
            MinImpliedVolatility: 0.2,
            MaxImpliedVolatility: 0.5,
            MinDaysToExpiry:      30,
            MaxDaysToExpiry:      60,
        },
    },
    "covered-call": {
        Name:        "Covered Call",
        Description: "Income over held shares. Wants stable large caps with modest IV and near-dated tenors.",
        Criteria: Criteria{
            MinPrice:             30,
            MaxPrice:             400,
            MinVolume:            1_000_000,
            MinMarketCap:         5_000_000_000,
            MaxBidAskSpread:      0.05,
            MinImpliedVolatility: 0.15,
            MaxImpliedVolatility: 0.45,
            MinDaysToExpiry:      14,
            MaxDaysToExpiry:      45,
        },
    },
    "cash-secured-put": {
        Name:        "Cash-Secured Put",
        Description: "Entry-price discipline via short puts. Wants affordable, liquid names with richer IV and 21-60 day tenors.",
        Criteria: Criteria{
            MinPrice:             10,
            MaxPrice:             150,
            MinVolume:            2_000_000,
            MinMarketCap:         1_000_000_000,
            MaxBidAskSpread:      0.06,
            MinImpliedVolatility: 0.3,
            MaxImpliedVolatility: 0.8,
            MinDaysToExpiry:      21,
            MaxDaysToExpiry:      60,
        },
    },
}
