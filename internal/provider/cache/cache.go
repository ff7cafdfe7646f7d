package cache

import (
    "context"
    "sync"
    "time"

    "golang.org/x/sync/singleflight"

    "thetaflow/internal/quote"
)

// entry stores one cached quote with expiry.
type entry struct {
    expiresAt time.Time
    q         quote.Quote
}

// Provider caches quotes per symbol for a TTL. Concurrent misses for the
// same symbol are coalesced into one upstream call. Search, history and
// options pass through uncached: quotes are the hot path here.
type Provider struct {
    P        quote.Provider
    TTL      time.Duration
    MaxItems int

    mu    sync.RWMutex
    items map[string]entry // key: symbol
    sf    singleflight.Group
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
    if c.TTL <= 0 {
        return c.P.Quote(ctx, symbol)
    }

    now := time.Now()
    c.mu.RLock()
    if e, ok := c.items[symbol]; ok && now.Before(e.expiresAt) {
        c.mu.RUnlock()
        return e.q, nil
    }
    c.mu.RUnlock()

    v, err, _ := c.sf.Do(symbol, func() (any, error) {
        q, err := c.P.Quote(ctx, symbol)
        if err != nil { return nil, err }
        c.store(symbol, q)
        return q, nil
    })
    if err != nil {
        // Serve a stale entry over a hard miss if one exists.
        c.mu.RLock()
        e, ok := c.items[symbol]
        c.mu.RUnlock()
        if ok { return e.q, nil }
        return quote.Quote{}, err
    }
    return v.(quote.Quote), nil
}

func (c *Provider) store(symbol string, q quote.Quote) {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.items == nil { c.items = make(map[string]entry) }
    c.items[symbol] = entry{expiresAt: time.Now().Add(c.TTL), q: q}
    if c.MaxItems > 0 && len(c.items) > c.MaxItems {
        // best-effort cap: drop expired first, then arbitrary keys
        now := time.Now()
        for k, v := range c.items {
            if now.After(v.expiresAt) { delete(c.items, k) }
            if len(c.items) <= c.MaxItems { break }
        }
        for k := range c.items {
            if len(c.items) <= c.MaxItems { break }
            delete(c.items, k)
        }
    }
}

func (c *Provider) Search(ctx context.Context, query string) ([]quote.SearchResult, error) {
    return c.P.Search(ctx, query)
}

func (c *Provider) History(ctx context.Context, symbol string, days int) ([]quote.Bar, error) {
    return c.P.History(ctx, symbol, days)
}

func (c *Provider) Options(ctx context.Context, symbol string) (*quote.Chain, error) {
    return c.P.Options(ctx, symbol)
}
