package ratelimit

import (
    "context"
    "sync"
    "time"

    "thetaflow/internal/quote"
)

// MinInterval wraps a provider and enforces a minimum time between vendor
// calls of any kind. Concurrent calls wait until the interval has elapsed
// since the last call, or return early if the context is canceled.
type MinInterval struct {
    P        quote.Provider
    Interval time.Duration
    mu       sync.Mutex
    last     time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
    if err := m.gate(ctx); err != nil { return quote.Quote{}, err }
    q, err := m.P.Quote(ctx, symbol)
    m.mark()
    return q, err
}

func (m *MinInterval) Search(ctx context.Context, query string) ([]quote.SearchResult, error) {
    if err := m.gate(ctx); err != nil { return nil, err }
    rs, err := m.P.Search(ctx, query)
    m.mark()
    return rs, err
}

func (m *MinInterval) History(ctx context.Context, symbol string, days int) ([]quote.Bar, error) {
    if err := m.gate(ctx); err != nil { return nil, err }
    bars, err := m.P.History(ctx, symbol, days)
    m.mark()
    return bars, err
}

func (m *MinInterval) Options(ctx context.Context, symbol string) (*quote.Chain, error) {
    if err := m.gate(ctx); err != nil { return nil, err }
    ch, err := m.P.Options(ctx, symbol)
    m.mark()
    return ch, err
}

func (m *MinInterval) gate(ctx context.Context) error {
    if m.Interval <= 0 { return nil }
    // simple gate: ensure at least Interval since last
    m.mu.Lock()
    wait := time.Until(m.last.Add(m.Interval))
    m.mu.Unlock()
    if wait > 0 {
        t := time.NewTimer(wait)
        defer t.Stop()
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-t.C:
        }
    }
    return nil
}

func (m *MinInterval) mark() {
    if m.Interval <= 0 { return }
    m.mu.Lock()
    m.last = time.Now()
    m.mu.Unlock()
}
