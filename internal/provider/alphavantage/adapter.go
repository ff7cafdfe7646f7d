package alphavantage

import (
    "context"
    "encoding/json"
    "fmt"
    "maps"
    "net/http"
    "sort"
    "strconv"
    "strings"
    "time"

    "thetaflow/internal/quote"
)

// Adapter normalizes Alpha Vantage responses into quote shapes.
// Alpha Vantage is the richest of the three vendors (quotes, search, daily
// series) but has the strictest rate limit, so it sits first in the fallback
// order behind a limiter.
type Adapter struct {
    name   string
    client *Client
}

func New(client *Client) *Adapter {
    return &Adapter{name: "AlphaVantage", client: client}
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) get(ctx context.Context, fn string, params map[string]string, v any) error {
    query := maps.Clone(a.client.query)
    query.Add("function", fn)
    for k, val := range params { query.Add(k, val) }
    url := fmt.Sprintf("%s/query?%s", a.client.baseURL, query.Encode())
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
    if err != nil { return fmt.Errorf("creating request: %w", err) }
    req.Header = a.client.header.Clone()
    res, err := a.client.httpClient.Do(req)
    if err != nil { return fmt.Errorf("performing request: %w", err) }
    defer res.Body.Close()
    if res.StatusCode != http.StatusOK {
        return fmt.Errorf("unexpected status code: %d", res.StatusCode)
    }
    if err := json.NewDecoder(res.Body).Decode(v); err != nil {
        return fmt.Errorf("decode: %w", err)
    }
    return nil
}

// globalQuote carries Alpha Vantage's numbered field names. Everything is a
// string on the wire, including the percent ("-2.09%").
type globalQuote struct {
    Symbol        string `json:"01. symbol"`
    Open          string `json:"02. open"`
    High          string `json:"03. high"`
    Low           string `json:"04. low"`
    Price         string `json:"05. price"`
    Volume        string `json:"06. volume"`
    PreviousClose string `json:"08. previous close"`
    Change        string `json:"09. change"`
    ChangePercent string `json:"10. change percent"`
}

type quoteResponse struct {
    GlobalQuote *globalQuote `json:"Global Quote"`
    Note        string       `json:"Note"`
    ErrorMsg    string       `json:"Error Message"`
}

func (a *Adapter) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
    var api quoteResponse
    if err := a.get(ctx, "GLOBAL_QUOTE", map[string]string{"symbol": symbol}, &api); err != nil {
        return quote.Quote{}, err
    }
    if api.ErrorMsg != "" {
        return quote.Quote{}, fmt.Errorf("provider error: %s", api.ErrorMsg)
    }
    // A Note without a quote is the vendor's soft rate-limit signal.
    if api.GlobalQuote == nil || api.GlobalQuote.Symbol == "" {
        if api.Note != "" {
            return quote.Quote{}, fmt.Errorf("rate limited: %s", api.Note)
        }
        return quote.Quote{}, fmt.Errorf("no quote for %q", symbol)
    }
    gq := api.GlobalQuote
    price, err := parseFloat(gq.Price)
    if err != nil { return quote.Quote{}, fmt.Errorf("price: %w", err) }
    change, err := parseFloat(gq.Change)
    if err != nil { return quote.Quote{}, fmt.Errorf("change: %w", err) }
    changePct, err := parsePercent(gq.ChangePercent)
    if err != nil { return quote.Quote{}, fmt.Errorf("change percent: %w", err) }
    vol, _ := strconv.ParseInt(strings.TrimSpace(gq.Volume), 10, 64)
    return quote.Quote{
        Symbol:        strings.ToUpper(gq.Symbol),
        Price:         price,
        Change:        change,
        ChangePercent: changePct,
        Volume:        vol,
        High:          parseFloatOr(gq.High, price),
        Low:           parseFloatOr(gq.Low, price),
        Open:          parseFloatOr(gq.Open, price),
        PreviousClose: parseFloatOr(gq.PreviousClose, price-change),
        Currency:      "USD",
        Exchange:      "US",
        Timestamp:     time.Now().UTC(),
        Source:        a.name,
    }, nil
}

type searchResponse struct {
    BestMatches []struct {
        Symbol string `json:"1. symbol"`
        Name   string `json:"2. name"`
        Type   string `json:"3. type"`
        Region string `json:"4. region"`
    } `json:"bestMatches"`
    Note string `json:"Note"`
}

func (a *Adapter) Search(ctx context.Context, query string) ([]quote.SearchResult, error) {
    var api searchResponse
    if err := a.get(ctx, "SYMBOL_SEARCH", map[string]string{"keywords": query}, &api); err != nil {
        return nil, err
    }
    if len(api.BestMatches) == 0 {
        if api.Note != "" { return nil, fmt.Errorf("rate limited: %s", api.Note) }
        return nil, fmt.Errorf("no matches for %q", query)
    }
    out := make([]quote.SearchResult, 0, len(api.BestMatches))
    for _, m := range api.BestMatches {
        out = append(out, quote.SearchResult{
            Symbol:   m.Symbol,
            Name:     m.Name,
            Exchange: m.Region,
            Type:     m.Type,
        })
    }
    return out, nil
}

type dailyBar struct {
    Open   string `json:"1. open"`
    High   string `json:"2. high"`
    Low    string `json:"3. low"`
    Close  string `json:"4. close"`
    Volume string `json:"5. volume"`
}

type historyResponse struct {
    Series map[string]dailyBar `json:"Time Series (Daily)"`
    Note   string              `json:"Note"`
}

func (a *Adapter) History(ctx context.Context, symbol string, days int) ([]quote.Bar, error) {
    if days <= 0 { days = 30 }
    var api historyResponse
    if err := a.get(ctx, "TIME_SERIES_DAILY", map[string]string{"symbol": symbol}, &api); err != nil {
        return nil, err
    }
    if len(api.Series) == 0 {
        if api.Note != "" { return nil, fmt.Errorf("rate limited: %s", api.Note) }
        return nil, fmt.Errorf("no series for %q", symbol)
    }
    dates := make([]string, 0, len(api.Series))
    for d := range api.Series { dates = append(dates, d) }
    sort.Sort(sort.Reverse(sort.StringSlice(dates)))
    if len(dates) > days { dates = dates[:days] }
    out := make([]quote.Bar, 0, len(dates))
    // Oldest first for charting.
    for i := len(dates) - 1; i >= 0; i-- {
        d := dates[i]
        day := api.Series[d]
        date, err := time.Parse("2006-01-02", d)
        if err != nil { continue }
        vol, _ := strconv.ParseInt(strings.TrimSpace(day.Volume), 10, 64)
        out = append(out, quote.Bar{
            Date:   date,
            Open:   parseFloatOr(day.Open, 0),
            High:   parseFloatOr(day.High, 0),
            Low:    parseFloatOr(day.Low, 0),
            Close:  parseFloatOr(day.Close, 0),
            Volume: vol,
        })
    }
    return out, nil
}

// Options data requires a paid vendor plan this deployment does not carry.
func (a *Adapter) Options(_ context.Context, _ string) (*quote.Chain, error) {
    return nil, quote.ErrCapabilityUnavailable
}

func parseFloat(s string) (float64, error) {
    return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseFloatOr(s string, def float64) float64 {
    v, err := parseFloat(s)
    if err != nil { return def }
    return v
}

// parsePercent turns a vendor percent string like "-2.09%" into -2.09.
func parsePercent(s string) (float64, error) {
    return parseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"))
}
