package synthetic

import (
    "context"
    "hash/fnv"
    "math"
    "strings"
    "time"

    "thetaflow/internal/quote"
)

// Generator produces deterministic stand-in market data for the case where
// every real provider has failed. Values are a pure function of (symbol, day):
// repeated calls with no network return identical numbers, so the UI never
// flickers between reloads.
type Generator struct {
    // Now is the clock used for timestamps and history dates. Defaults to
    // time.Now when nil.
    Now func() time.Time
}

const sourceName = "synthetic"

type seed struct {
    price         float64
    change        float64
    changePercent float64
}

// Plausible baseline values for well-known symbols; anything else gets the
// generic default. Quotes built from these are always flagged Synthetic.
var knownSymbols = map[string]seed{
    "AAPL":  {199.30, -4.26, -2.09},
    "MSFT":  {533.50, 20.26, 3.95},
    "GOOGL": {190.73, -0.62, -0.32},
    "AMZN":  {176.96, 4.94, 2.87},
    "TSLA":  {151.03, 0.24, 0.16},
    "SPY":   {485.20, 2.15, 0.44},
    "SPXL":  {12.45, 0.18, 1.47},
    "SPXS":  {8.92, -0.12, -1.33},
}

var defaultSeed = seed{150.00, 0.50, 0.33}

const defaultVolume = 2_500_000

func (g *Generator) Name() string { return sourceName }

func (g *Generator) now() time.Time {
    if g.Now != nil { return g.Now() }
    return time.Now()
}

// Quote never fails.
func (g *Generator) Quote(_ context.Context, symbol string) (quote.Quote, error) {
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    s, ok := knownSymbols[sym]
    if !ok { s = defaultSeed }
    return quote.Quote{
        Symbol:        sym,
        Price:         s.price,
        Change:        s.change,
        ChangePercent: s.changePercent,
        Volume:        defaultVolume,
        High:          s.price + 2,
        Low:           s.price - 2,
        Open:          s.price - 0.5,
        PreviousClose: s.price - s.change,
        Currency:      "USD",
        Exchange:      "US",
        Timestamp:     g.now().UTC(),
        Source:        sourceName,
        Synthetic:     true,
    }, nil
}

var defaultSearchResults = []quote.SearchResult{
    {Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", Exchange: "US", Type: "ETF"},
    {Symbol: "SPXL", Name: "Direxion Daily S&P 500 Bull 3X Shares", Exchange: "US", Type: "ETF"},
    {Symbol: "SPXS", Name: "Direxion Daily S&P 500 Bear 3X Shares", Exchange: "US", Type: "ETF"},
    {Symbol: "AAPL", Name: "Apple Inc.", Exchange: "US", Type: "EQUITY"},
    {Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "US", Type: "EQUITY"},
}

// Search returns a fixed explorable default set regardless of query.
func (g *Generator) Search(_ context.Context, _ string) ([]quote.SearchResult, error) {
    out := make([]quote.SearchResult, len(defaultSearchResults))
    copy(out, defaultSearchResults)
    return out, nil
}

// History returns a smooth sine-wave series around the symbol's baseline
// price, oldest bar first.
func (g *Generator) History(_ context.Context, symbol string, days int) ([]quote.Bar, error) {
    if days <= 0 { days = 30 }
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    s, ok := knownSymbols[sym]
    if !ok { s = defaultSeed }
    today := g.now().UTC().Truncate(24 * time.Hour)
    out := make([]quote.Bar, 0, days)
    for i := days; i > 0; i-- {
        closePx := s.price + math.Sin(float64(i)*0.2)*5
        out = append(out, quote.Bar{
            Date:   today.AddDate(0, 0, -i),
            Open:   closePx - 1,
            High:   closePx + 2,
            Low:    closePx - 2,
            Close:  closePx,
            Volume: defaultVolume,
        })
    }
    return out, nil
}

// Options payloads are too structurally specific to fake safely.
func (g *Generator) Options(_ context.Context, _ string) (*quote.Chain, error) {
    return nil, quote.ErrCapabilityUnavailable
}

// DaysToExpiry picks a canonical option tenor for a symbol. The pick is a
// stable hash of the symbol, standing in for real options-chain data.
func DaysToExpiry(symbol string) int {
    tenors := [...]int{7, 14, 21, 30, 45, 60, 90, 120, 180, 365}
    h := fnv.New32a()
    h.Write([]byte(strings.ToUpper(strings.TrimSpace(symbol))))
    return tenors[int(h.Sum32())%len(tenors)]
}
