package polygon

import (
    "context"
    "fmt"
    "net/url"
    "strings"
    "time"

    "thetaflow/internal/httpx"
    "thetaflow/internal/quote"
)

// Config controls the Polygon provider behavior.
type Config struct {
    Name   string
    URL    string // base endpoint, default https://api.polygon.io/v2
    APIKey string
}

// Provider fetches coarse daily-bar data from Polygon. It is the last real
// vendor in the fallback chain: the only quote it can produce is the previous
// day's aggregate, with change approximated against that bar's open.
type Provider struct {
    cfg    Config
    client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
    if cfg.Name == "" { cfg.Name = "Polygon" }
    if cfg.URL == "" { cfg.URL = "https://api.polygon.io/v2" }
    return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

type aggBar struct {
    C float64 `json:"c"`
    O float64 `json:"o"`
    H float64 `json:"h"`
    L float64 `json:"l"`
    V float64 `json:"v"`
    T int64   `json:"t"` // epoch millis
}

type aggResponse struct {
    Status  string   `json:"status"`
    Results []aggBar `json:"results"`
    Error   string   `json:"error"`
}

func (p *Provider) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    u := fmt.Sprintf("%s/aggs/ticker/%s/prev?adjusted=true&apiKey=%s", p.cfg.URL, url.PathEscape(sym), url.QueryEscape(p.cfg.APIKey))
    var body aggResponse
    if err := p.client.GetJSON(ctx, u, &body); err != nil {
        return quote.Quote{}, err
    }
    if body.Error != "" {
        return quote.Quote{}, fmt.Errorf("provider error: %s", body.Error)
    }
    if len(body.Results) == 0 {
        return quote.Quote{}, fmt.Errorf("no quote for %q", sym)
    }
    bar := body.Results[0]
    prev := bar.O // open stands in for previous close on this endpoint
    change := bar.C - prev
    changePct := 0.0
    if prev != 0 { changePct = change / prev * 100 }
    ts := time.Now().UTC()
    if bar.T > 0 { ts = time.UnixMilli(bar.T).UTC() }
    return quote.Quote{
        Symbol:        sym,
        Price:         bar.C,
        Change:        change,
        ChangePercent: changePct,
        Volume:        int64(bar.V),
        High:          orDefault(bar.H, bar.C),
        Low:           orDefault(bar.L, bar.C),
        Open:          orDefault(bar.O, bar.C),
        PreviousClose: prev,
        Currency:      "USD",
        Exchange:      "US",
        Timestamp:     ts,
        Source:        p.cfg.Name,
    }, nil
}

func (p *Provider) Search(_ context.Context, _ string) ([]quote.SearchResult, error) {
    return nil, quote.ErrCapabilityUnavailable
}

func (p *Provider) History(ctx context.Context, symbol string, days int) ([]quote.Bar, error) {
    if days <= 0 { days = 30 }
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    to := time.Now().UTC()
    // Pad the window so weekends/holidays still yield the requested count.
    from := to.AddDate(0, 0, -(days*7/5 + 5))
    u := fmt.Sprintf("%s/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&apiKey=%s",
        p.cfg.URL, url.PathEscape(sym), from.Format("2006-01-02"), to.Format("2006-01-02"), url.QueryEscape(p.cfg.APIKey))
    var body aggResponse
    if err := p.client.GetJSON(ctx, u, &body); err != nil {
        return nil, err
    }
    if body.Error != "" {
        return nil, fmt.Errorf("provider error: %s", body.Error)
    }
    if len(body.Results) == 0 {
        return nil, fmt.Errorf("no series for %q", sym)
    }
    bars := body.Results
    if len(bars) > days { bars = bars[len(bars)-days:] }
    out := make([]quote.Bar, 0, len(bars))
    for _, b := range bars {
        out = append(out, quote.Bar{
            Date:   time.UnixMilli(b.T).UTC().Truncate(24 * time.Hour),
            Open:   b.O,
            High:   b.H,
            Low:    b.L,
            Close:  b.C,
            Volume: int64(b.V),
        })
    }
    return out, nil
}

func (p *Provider) Options(_ context.Context, _ string) (*quote.Chain, error) {
    return nil, quote.ErrCapabilityUnavailable
}

func orDefault(v, def float64) float64 {
    if v == 0 { return def }
    return v
}
