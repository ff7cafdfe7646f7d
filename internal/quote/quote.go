package quote

import (
    "context"
    "errors"
    "time"
)

// ErrCapabilityUnavailable signals that no configured provider supports the
// requested data kind (e.g. options chains on free vendor tiers). It is the
// only provider error callers of the aggregator ever see.
var ErrCapabilityUnavailable = errors.New("capability unavailable")

// Quote is the normalized shape returned by all providers.
// Adapters own vendor-specific parsing; nothing above them sees raw payloads.
type Quote struct {
    Symbol        string    `json:"symbol"`
    Price         float64   `json:"price"`
    Change        float64   `json:"change"`
    ChangePercent float64   `json:"change_percent"`
    Volume        int64     `json:"volume"`
    High          float64   `json:"high"`
    Low           float64   `json:"low"`
    Open          float64   `json:"open"`
    PreviousClose float64   `json:"previous_close"`
    Currency      string    `json:"currency"`
    Exchange      string    `json:"exchange"`
    Timestamp     time.Time `json:"timestamp"`
    // Source names the provider that produced the quote. Synthetic marks
    // values generated locally after every provider failed; the UI uses it
    // to warn that the numbers are not live.
    Source    string `json:"source"`
    Synthetic bool   `json:"synthetic"`
}

// SearchResult is one symbol-search hit.
type SearchResult struct {
    Symbol   string `json:"symbol"`
    Name     string `json:"name"`
    Exchange string `json:"exchange"`
    Type     string `json:"type"`
}

// Bar is one daily OHLCV bar.
type Bar struct {
    Date   time.Time `json:"date"`
    Open   float64   `json:"open"`
    High   float64   `json:"high"`
    Low    float64   `json:"low"`
    Close  float64   `json:"close"`
    Volume int64     `json:"volume"`
}

// Contract is a single option contract quote.
type Contract struct {
    Strike        float64 `json:"strike"`
    Bid           float64 `json:"bid"`
    Ask           float64 `json:"ask"`
    LastPrice     float64 `json:"last_price"`
    Volume        int64   `json:"volume"`
    OpenInterest  int64   `json:"open_interest"`
    ImpliedVol    float64 `json:"implied_volatility"`
}

// Expiration groups the chain for one expiration date.
type Expiration struct {
    Date  time.Time  `json:"date"`
    Calls []Contract `json:"calls"`
    Puts  []Contract `json:"puts"`
}

// Chain is a full options chain for a symbol.
type Chain struct {
    Symbol      string       `json:"symbol"`
    Expirations []Expiration `json:"expirations"`
}

// Provider is the single capability interface every vendor adapter implements.
// Operations a vendor cannot serve return ErrCapabilityUnavailable so the
// aggregator can fall through to the next provider in order.
type Provider interface {
    Name() string
    Quote(ctx context.Context, symbol string) (Quote, error)
    Search(ctx context.Context, query string) ([]SearchResult, error)
    History(ctx context.Context, symbol string, days int) ([]Bar, error)
    Options(ctx context.Context, symbol string) (*Chain, error)
}
