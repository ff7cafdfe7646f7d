package screener

import (
    "context"
    "math"
    "sort"
    "strings"
    "time"

    "thetaflow/internal/provider/synthetic"
    "thetaflow/internal/quote"
)

// QuoteSource is the slice of the market aggregator the screener needs.
type QuoteSource interface {
    Quotes(ctx context.Context, symbols []string) ([]quote.Quote, error)
}

// Candidate is one screener result row: the quote plus static metadata and
// the synthetic option metrics the filters run over. Recomputed in full on
// every run, never persisted.
type Candidate struct {
    Symbol        string    `json:"symbol"`
    Name          string    `json:"name"`
    Sector        string    `json:"sector"`
    Price         float64   `json:"price"`
    Change        float64   `json:"change"`
    ChangePercent float64   `json:"change_percent"`
    Volume        int64     `json:"volume"`
    High          float64   `json:"high"`
    Low           float64   `json:"low"`
    Open          float64   `json:"open"`
    PreviousClose float64   `json:"previous_close"`
    Timestamp     time.Time `json:"timestamp"`
    MarketCap     float64   `json:"market_cap"`
    BidAskSpread  float64   `json:"bid_ask_spread"`
    ImpliedVol    float64   `json:"implied_volatility"`
    DaysToExpiry  int       `json:"days_to_expiry"`
    Score         float64   `json:"score"`
    Synthetic     bool      `json:"synthetic"`
}

// Sort keys accepted by Screen.
const (
    SortVolume        = "volume"
    SortPrice         = "price"
    SortScore         = "score"
    SortChangePercent = "changePercent"
    SortImpliedVol    = "impliedVolatility"
)

// Engine runs strategy screens over a fixed symbol universe.
type Engine struct {
    Source   QuoteSource
    Universe []Stock
    // BatchSize partitions the universe to respect provider rate limits.
    // Batches are issued strictly in order; batch N+1 never starts before
    // batch N has settled.
    BatchSize int
}

func New(source QuoteSource) *Engine {
    return &Engine{Source: source, Universe: DefaultUniverse, BatchSize: 10}
}

// Screen fetches the universe in batches, derives the synthetic option
// metrics, filters against every bound simultaneously, scores survivors and
// sorts them. A failing batch is skipped; if every batch fails, a
// deterministic synthetic pass over the whole universe keeps the result set
// explorable. Cancel the context to abandon a run that has been superseded.
func (e *Engine) Screen(ctx context.Context, c Criteria, sortKey string, descending bool) ([]Candidate, error) {
    universe := e.Universe
    if len(universe) == 0 { universe = DefaultUniverse }
    batchSize := e.BatchSize
    if batchSize <= 0 { batchSize = 10 }

    bySymbol := make(map[string]Stock, len(universe))
    symbols := make([]string, len(universe))
    for i, s := range universe {
        symbols[i] = s.Symbol
        bySymbol[s.Symbol] = s
    }

    var out []Candidate
    fetched := false
    for start := 0; start < len(symbols); start += batchSize {
        if err := ctx.Err(); err != nil {
            return nil, err
        }
        end := start + batchSize
        if end > len(symbols) { end = len(symbols) }
        qs, err := e.Source.Quotes(ctx, symbols[start:end])
        if err != nil {
            if ctx.Err() != nil {
                return nil, ctx.Err()
            }
            // Partial results from other batches still count.
            continue
        }
        fetched = true
        for _, q := range qs {
            stock, ok := bySymbol[q.Symbol]
            if !ok { continue }
            if cand, ok := build(stock, q, c); ok {
                out = append(out, cand)
            }
        }
    }

    if !fetched {
        out = e.syntheticPass(ctx, universe, c)
    }

    sortCandidates(out, sortKey, descending)
    return out, nil
}

// syntheticPass screens deterministic stand-in quotes for the whole
// universe, used only when no batch produced data.
func (e *Engine) syntheticPass(ctx context.Context, universe []Stock, c Criteria) []Candidate {
    gen := &synthetic.Generator{}
    out := make([]Candidate, 0, len(universe))
    for _, s := range universe {
        q, _ := gen.Quote(ctx, s.Symbol)
        if cand, ok := build(s, q, c); ok {
            out = append(out, cand)
        }
    }
    return out
}

// build derives the synthetic metrics for a quote and returns the candidate
// only if it satisfies every active bound.
func build(s Stock, q quote.Quote, c Criteria) (Candidate, bool) {
    spread := BidAskSpread(q.Price)
    iv := ImpliedVolatility(q.Volume, q.ChangePercent)
    dte := synthetic.DaysToExpiry(q.Symbol)
    mcap := MarketCap(q.Price, q.Volume)

    if q.Price < c.MinPrice || q.Price > c.MaxPrice { return Candidate{}, false }
    if q.Volume < c.MinVolume { return Candidate{}, false }
    if mcap < c.MinMarketCap { return Candidate{}, false }
    if spread > c.MaxBidAskSpread { return Candidate{}, false }
    if iv < c.MinImpliedVolatility || iv > c.MaxImpliedVolatility { return Candidate{}, false }
    if dte < c.MinDaysToExpiry || dte > c.MaxDaysToExpiry { return Candidate{}, false }

    return Candidate{
        Symbol:        q.Symbol,
        Name:          s.Name,
        Sector:        s.Sector,
        Price:         q.Price,
        Change:        q.Change,
        ChangePercent: q.ChangePercent,
        Volume:        q.Volume,
        High:          q.High,
        Low:           q.Low,
        Open:          q.Open,
        PreviousClose: q.PreviousClose,
        Timestamp:     q.Timestamp,
        MarketCap:     mcap,
        BidAskSpread:  spread,
        ImpliedVol:    iv,
        DaysToExpiry:  dte,
        Score:         Score(q, c),
        Synthetic:     q.Synthetic,
    }, true
}

// BidAskSpread approximates a proportional spread from price alone: higher
// absolute prices trade tighter. Capped at 10%.
func BidAskSpread(price float64) float64 {
    if price <= 0 { return 0.1 }
    const baseSpread = 0.01
    adj := math.Max(0.005, 1/price)
    return math.Min(0.1, baseSpread+adj)
}

// ImpliedVolatility proxies IV from normalized volume and the magnitude of
// the day's move, clamped to [10%, 100%].
func ImpliedVolatility(volume int64, changePercent float64) float64 {
    volumeFactor := math.Min(1, float64(volume)/10_000_000)
    volatilityFactor := math.Abs(changePercent) / 100
    const baseIV = 0.3
    return math.Min(1.0, math.Max(0.1, baseIV+volatilityFactor*0.4+volumeFactor*0.2))
}

// MarketCap proxies capitalization from price and volume; real cap data
// would come from a fundamentals feed.
func MarketCap(price float64, volume int64) float64 {
    return price * float64(volume) * 100
}

// Score rates a surviving candidate 0-100: base 50, plus volume adequacy
// (up to 20), price stability (up to 15), liquidity (up to 15) and
// IV-appropriateness against the midpoint of the active IV range (up to 20).
func Score(q quote.Quote, c Criteria) float64 {
    score := 50.0

    if c.MinVolume > 0 {
        score += math.Min(20, float64(q.Volume)/float64(c.MinVolume)*10)
    }
    score += math.Max(0, 15-math.Abs(q.ChangePercent)*0.5)
    score += math.Max(0, 15-BidAskSpread(q.Price)*200)

    iv := ImpliedVolatility(q.Volume, q.ChangePercent)
    mid := (c.MinImpliedVolatility + c.MaxImpliedVolatility) / 2
    score += math.Max(0, 20-math.Abs(iv-mid)*40)

    return math.Min(100, math.Max(0, score))
}

func sortCandidates(cands []Candidate, key string, descending bool) {
    less := func(i, j int) bool { return cands[i].Volume < cands[j].Volume }
    switch strings.TrimSpace(key) {
    case SortPrice:
        less = func(i, j int) bool { return cands[i].Price < cands[j].Price }
    case SortScore:
        less = func(i, j int) bool { return cands[i].Score < cands[j].Score }
    case SortChangePercent:
        less = func(i, j int) bool { return cands[i].ChangePercent < cands[j].ChangePercent }
    case SortImpliedVol:
        less = func(i, j int) bool { return cands[i].ImpliedVol < cands[j].ImpliedVol }
    }
    if descending {
        inner := less
        less = func(i, j int) bool { return inner(j, i) }
    }
    sort.SliceStable(cands, less)
}
