package finnhub

import (
    "context"
    "fmt"
    "net/url"
    "strings"
    "time"

    "thetaflow/internal/httpx"
    "thetaflow/internal/quote"
)

// Config controls the Finnhub provider behavior.
type Config struct {
    Name     string
    URL      string // base endpoint, default https://finnhub.io/api/v1
    Token    string
    MaxSearchResults int
}

// Provider fetches quotes and symbol search from Finnhub. The vendor reports
// fewer fields than Alpha Vantage (no change/percent on the quote endpoint),
// so both are derived from the previous close here, at the adapter boundary.
type Provider struct {
    cfg    Config
    client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
    if cfg.Name == "" { cfg.Name = "Finnhub" }
    if cfg.URL == "" { cfg.URL = "https://finnhub.io/api/v1" }
    if cfg.MaxSearchResults <= 0 { cfg.MaxSearchResults = 5 }
    return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// quoteBody is Finnhub's terse quote shape: c=current, pc=previous close,
// h/l/o high/low/open, v volume.
type quoteBody struct {
    C  float64 `json:"c"`
    PC float64 `json:"pc"`
    H  float64 `json:"h"`
    L  float64 `json:"l"`
    O  float64 `json:"o"`
    V  int64   `json:"v"`
}

func (p *Provider) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    u := fmt.Sprintf("%s/quote?symbol=%s&token=%s", p.cfg.URL, url.QueryEscape(sym), url.QueryEscape(p.cfg.Token))
    var body quoteBody
    if err := p.client.GetJSON(ctx, u, &body); err != nil {
        return quote.Quote{}, err
    }
    // Finnhub reports c=0 for unknown symbols rather than an error status.
    if body.C <= 0 {
        return quote.Quote{}, fmt.Errorf("no quote for %q", sym)
    }
    change := body.C - body.PC
    changePct := 0.0
    if body.PC != 0 { changePct = change / body.PC * 100 }
    return quote.Quote{
        Symbol:        sym,
        Price:         body.C,
        Change:        change,
        ChangePercent: changePct,
        Volume:        body.V,
        High:          orDefault(body.H, body.C),
        Low:           orDefault(body.L, body.C),
        Open:          orDefault(body.O, body.C),
        PreviousClose: body.PC,
        Currency:      "USD",
        Exchange:      "US",
        Timestamp:     time.Now().UTC(),
        Source:        p.cfg.Name,
    }, nil
}

type searchBody struct {
    Result []struct {
        Symbol          string `json:"symbol"`
        Description     string `json:"description"`
        PrimaryExchange string `json:"primaryExchange"`
        Type            string `json:"type"`
    } `json:"result"`
}

func (p *Provider) Search(ctx context.Context, query string) ([]quote.SearchResult, error) {
    u := fmt.Sprintf("%s/search?q=%s&token=%s", p.cfg.URL, url.QueryEscape(query), url.QueryEscape(p.cfg.Token))
    var body searchBody
    if err := p.client.GetJSON(ctx, u, &body); err != nil {
        return nil, err
    }
    if len(body.Result) == 0 {
        return nil, fmt.Errorf("no matches for %q", query)
    }
    n := len(body.Result)
    if n > p.cfg.MaxSearchResults { n = p.cfg.MaxSearchResults }
    out := make([]quote.SearchResult, 0, n)
    for _, r := range body.Result[:n] {
        sr := quote.SearchResult{Symbol: r.Symbol, Name: r.Description, Exchange: r.PrimaryExchange, Type: r.Type}
        if sr.Name == "" { sr.Name = r.Symbol }
        if sr.Exchange == "" { sr.Exchange = "US" }
        if sr.Type == "" { sr.Type = "EQUITY" }
        out = append(out, sr)
    }
    return out, nil
}

// Candle history needs a paid Finnhub tier.
func (p *Provider) History(_ context.Context, _ string, _ int) ([]quote.Bar, error) {
    return nil, quote.ErrCapabilityUnavailable
}

func (p *Provider) Options(_ context.Context, _ string) (*quote.Chain, error) {
    return nil, quote.ErrCapabilityUnavailable
}

func orDefault(v, def float64) float64 {
    if v == 0 { return def }
    return v
}
