package market

import (
    "context"
    "errors"
    "strings"

    "golang.org/x/sync/errgroup"

    "thetaflow/internal/provider/synthetic"
    "thetaflow/internal/quote"
)

// Aggregator produces normalized market data with ordered multi-provider
// fallback and a deterministic synthetic safety net, so quote, search and
// history lookups never surface a fetch error to callers. Only the options
// chain is allowed to fail, with quote.ErrCapabilityUnavailable, because no
// safe synthetic substitute for options payloads exists.
type Aggregator struct {
    providers []quote.Provider
    synth     *synthetic.Generator

    // MaxSearchResults caps search output for display. Defaults to 5.
    MaxSearchResults int
    // BatchConcurrency bounds parallel per-symbol fetches in Quotes.
    BatchConcurrency int
}

func New(providers []quote.Provider, synth *synthetic.Generator) *Aggregator {
    if synth == nil { synth = &synthetic.Generator{} }
    return &Aggregator{providers: providers, synth: synth, MaxSearchResults: 5, BatchConcurrency: 4}
}

// Quote fetches one symbol, trying providers in their fixed order and
// falling back to a synthetic quote after exhaustion, so it always returns
// a usable value.
func (a *Aggregator) Quote(ctx context.Context, symbol string) quote.Quote {
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    for _, p := range a.providers {
        if ctx.Err() != nil { break }
        q, err := p.Quote(ctx, sym)
        if err != nil { continue }
        q.Symbol = strings.ToUpper(q.Symbol)
        return q
    }
    q, _ := a.synth.Quote(ctx, sym)
    return q
}

// Quotes maps Quote over symbols, preserving input order. Each symbol falls
// back independently; lookups within the batch run concurrently but the
// call does not return until all settle.
func (a *Aggregator) Quotes(ctx context.Context, symbols []string) ([]quote.Quote, error) {
    out := make([]quote.Quote, len(symbols))
    g, gctx := errgroup.WithContext(ctx)
    limit := a.BatchConcurrency
    if limit <= 0 { limit = 1 }
    g.SetLimit(limit)
    for i, s := range symbols {
        i, s := i, s
        g.Go(func() error {
            out[i] = a.Quote(gctx, s)
            return gctx.Err()
        })
    }
    if err := g.Wait(); err != nil {
        return nil, err
    }
    return out, nil
}

// Search resolves a query to at most MaxSearchResults symbols. An empty or
// whitespace-only query short-circuits without touching any provider.
func (a *Aggregator) Search(ctx context.Context, query string) []quote.SearchResult {
    q := strings.TrimSpace(query)
    if q == "" {
        return []quote.SearchResult{}
    }
    for _, p := range a.providers {
        if ctx.Err() != nil { break }
        rs, err := p.Search(ctx, q)
        if err != nil || len(rs) == 0 { continue }
        return a.capResults(rs)
    }
    rs, _ := a.synth.Search(ctx, q)
    return a.capResults(rs)
}

func (a *Aggregator) capResults(rs []quote.SearchResult) []quote.SearchResult {
    max := a.MaxSearchResults
    if max <= 0 { max = 5 }
    if len(rs) > max { rs = rs[:max] }
    return rs
}

// History returns the most recent daily bars, oldest first. On total
// provider failure the series is synthesized deterministically so repeated
// offline calls do not flicker.
func (a *Aggregator) History(ctx context.Context, symbol string, days int) []quote.Bar {
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    if days <= 0 { days = 30 }
    for _, p := range a.providers {
        if ctx.Err() != nil { break }
        bars, err := p.History(ctx, sym, days)
        if err != nil || len(bars) == 0 { continue }
        return bars
    }
    bars, _ := a.synth.History(ctx, sym, days)
    return bars
}

// OptionsChain is the one operation that surfaces an error: when no
// provider tier carries options data, callers get ErrCapabilityUnavailable.
func (a *Aggregator) OptionsChain(ctx context.Context, symbol string) (*quote.Chain, error) {
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    var lastErr error
    for _, p := range a.providers {
        if ctx.Err() != nil {
            return nil, ctx.Err()
        }
        ch, err := p.Options(ctx, sym)
        if err == nil {
            return ch, nil
        }
        if !errors.Is(err, quote.ErrCapabilityUnavailable) { lastErr = err }
    }
    if lastErr != nil {
        return nil, lastErr
    }
    return nil, quote.ErrCapabilityUnavailable
}

// majorSymbols backs the dashboard market overview.
var majorSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}

var displayNames = map[string]string{
    "AAPL":  "Apple Inc.",
    "MSFT":  "Microsoft Corporation",
    "GOOGL": "Alphabet Inc.",
    "AMZN":  "Amazon.com Inc.",
    "TSLA":  "Tesla Inc.",
}

// SummaryItem is one market-overview row.
type SummaryItem struct {
    Symbol        string  `json:"symbol"`
    Name          string  `json:"name"`
    Price         float64 `json:"price"`
    Change        float64 `json:"change"`
    ChangePercent float64 `json:"change_percent"`
    Volume        int64   `json:"volume"`
    Synthetic     bool    `json:"synthetic"`
}

// MarketSummary returns quotes for the major-symbol list with display names.
func (a *Aggregator) MarketSummary(ctx context.Context) ([]SummaryItem, error) {
    qs, err := a.Quotes(ctx, majorSymbols)
    if err != nil {
        return nil, err
    }
    out := make([]SummaryItem, 0, len(qs))
    for _, q := range qs {
        name := displayNames[q.Symbol]
        if name == "" { name = q.Symbol }
        out = append(out, SummaryItem{
            Symbol:        q.Symbol,
            Name:          name,
            Price:         q.Price,
            Change:        q.Change,
            ChangePercent: q.ChangePercent,
            Volume:        q.Volume,
            Synthetic:     q.Synthetic,
        })
    }
    return out, nil
}
