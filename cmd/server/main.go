package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "errors"
    "io"
    "log"
    "net/http"
    "os"
    "os/signal"
    "strconv"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/joho/godotenv"

    "thetaflow/internal/config"
    "thetaflow/internal/entitlement"
    "thetaflow/internal/httpx"
    "thetaflow/internal/market"
    "thetaflow/internal/provider/alphavantage"
    "thetaflow/internal/provider/cache"
    "thetaflow/internal/provider/finnhub"
    "thetaflow/internal/provider/polygon"
    "thetaflow/internal/provider/ratelimit"
    "thetaflow/internal/provider/synthetic"
    "thetaflow/internal/quote"
    "thetaflow/internal/screener"
    "thetaflow/internal/session"
    "thetaflow/internal/store"
    "thetaflow/internal/user"
)

func main() {
    // .env is optional; real deployments set env vars directly.
    _ = godotenv.Load()

    cfgPath := os.Getenv("CONFIG_FILE")
    cfg, err := config.Load(cfgPath)
    if err != nil { log.Fatalf("config: %v", err) }

    if cfg.AlphaVantage.Enabled && cfg.AlphaVantage.APIKey == "" {
        log.Println("warning: alphavantage.enabled=true but ALPHAVANTAGE_API_KEY not set")
    }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

    providers := buildProviders(cfg, httpClient)
    agg := market.New(providers, &synthetic.Generator{})

    wl, err := market.NewWatchlist(agg, &store.WatchlistStore{Path: cfg.Storage.WatchlistFile})
    if err != nil { log.Fatalf("watchlist: %v", err) }

    engine := &entitlement.Engine{}
    sess := &session.Service{
        Store:      &store.UserStore{Path: cfg.Storage.UserFile},
        Engine:     engine,
        AdminEmail: cfg.AdminEmail,
    }
    // Lazy plan-expiry transition happens here, once per process start.
    if u, err := sess.Restore(); err != nil {
        log.Printf("session restore: %v", err)
    } else if u != nil {
        log.Printf("restored session for %s (plan=%s)", u.Email, u.Plan)
    }

    scr := screener.New(agg)
    if cfg.Screener.BatchSize > 0 { scr.BatchSize = cfg.Screener.BatchSize }

    srv := newServer(agg, wl, scr, engine, sess)

    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.HandleFunc("/api/session", srv.handleSession)
    mux.HandleFunc("/api/search", srv.gated(entitlement.FeatureMarket, srv.handleSearch))
    mux.HandleFunc("/api/quote", srv.gated(entitlement.FeatureMarket, srv.handleQuote))
    mux.HandleFunc("/api/quotes", srv.gated(entitlement.FeatureMarket, srv.handleQuotes))
    mux.HandleFunc("/api/history", srv.gated(entitlement.FeatureMarket, srv.handleHistory))
    mux.HandleFunc("/api/options", srv.gated(entitlement.FeatureMarket, srv.handleOptions))
    mux.HandleFunc("/api/summary", srv.gated(entitlement.FeatureMarket, srv.handleSummary))
    mux.HandleFunc("/api/watchlist", srv.gated(entitlement.FeatureTrades, srv.handleWatchlist))
    mux.HandleFunc("/api/screener", srv.trialGated(srv.handleScreener))

    httpSrv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      30 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Printf("server listening on :%s", cfg.Server.Port)
        if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatalf("server: %v", err)
        }
    }()

    // graceful shutdown
    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = httpSrv.Shutdown(shutdownCtx)
}

// buildProviders assembles the fixed fallback order: Alpha Vantage (richest
// data, tightest limit), then Finnhub, then Polygon's coarse daily bars.
// Each vendor gets its own limiter and quote cache; the synthetic tier is
// not a provider here, it lives inside the aggregator.
func buildProviders(cfg config.Config, httpClient *httpx.Client) []quote.Provider {
    var providers []quote.Provider
    if cfg.AlphaVantage.Enabled {
        client, err := alphavantage.NewClient(
            cfg.AlphaVantage.APIKey,
            alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
            alphavantage.WithHTTPClient(httpClient.HTTP),
        )
        if err != nil {
            log.Printf("alphavantage client error: %v", err)
        } else {
            providers = append(providers, decorate(alphavantage.New(client),
                cfg.AlphaVantage.MaxRequestsPerMinute, cfg.AlphaVantage.Burst,
                cfg.AlphaVantage.MinRequestIntervalSec,
                cfg.AlphaVantage.CacheTTLSeconds, cfg.AlphaVantage.CacheMaxItems))
        }
    }
    if cfg.Finnhub.Enabled {
        p := finnhub.New(finnhub.Config{URL: cfg.Finnhub.Endpoint, Token: cfg.Finnhub.Token}, httpClient)
        providers = append(providers, decorate(p,
            cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst,
            cfg.Finnhub.MinRequestIntervalSec,
            cfg.Finnhub.CacheTTLSeconds, cfg.Finnhub.CacheMaxItems))
    }
    if cfg.Polygon.Enabled {
        p := polygon.New(polygon.Config{URL: cfg.Polygon.Endpoint, APIKey: cfg.Polygon.APIKey}, httpClient)
        providers = append(providers, decorate(p,
            cfg.Polygon.MaxRequestsPerMinute, cfg.Polygon.Burst,
            cfg.Polygon.MinRequestIntervalSec,
            cfg.Polygon.CacheTTLSeconds, cfg.Polygon.CacheMaxItems))
    }
    return providers
}

// decorate wraps a vendor adapter in rate limiting and caching per config.
// Prefer token bucket with burst if RPM is set, otherwise min-interval.
func decorate(p quote.Provider, rpm, burst, minIntervalSec, cacheTTLSec, cacheMaxItems int) quote.Provider {
    if rpm > 0 {
        if burst <= 0 { burst = 1 }
        p = &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.NewTokenBucket(float64(rpm)/60.0, burst)}
    } else if minIntervalSec > 0 {
        p = &ratelimit.MinInterval{P: p, Interval: time.Duration(minIntervalSec) * time.Second}
    }
    if cacheTTLSec > 0 {
        p = &cache.Provider{P: p, TTL: time.Duration(cacheTTLSec) * time.Second, MaxItems: cacheMaxItems}
    }
    return p
}

type server struct {
    agg    *market.Aggregator
    wl     *market.Watchlist
    scr    *screener.Engine
    engine *entitlement.Engine
    sess   *session.Service

    // One screener run per view: a new run cancels any still-in-flight
    // predecessor so a stale result can't race into the response.
    runMu     sync.Mutex
    runSeq    uint64
    cancelRun context.CancelFunc
}

func newServer(agg *market.Aggregator, wl *market.Watchlist, scr *screener.Engine, engine *entitlement.Engine, sess *session.Service) *server {
    return &server{agg: agg, wl: wl, scr: scr, engine: engine, sess: sess}
}

type errorBody struct {
    Error   string `json:"error"`
    Upgrade bool   `json:"upgrade,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

// gated denies the request unless the restored profile may reach feature.
// Denial is a routine outcome, answered with an upgrade hint, not a 5xx.
func (s *server) gated(feature entitlement.Feature, next http.HandlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        u, err := s.sess.Restore()
        if err != nil {
            writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session unavailable"})
            return
        }
        if u == nil {
            writeJSON(w, http.StatusUnauthorized, errorBody{Error: "sign in required"})
            return
        }
        if !s.engine.HasAccess(u, feature) {
            writeJSON(w, http.StatusPaymentRequired, errorBody{Error: "plan upgrade required", Upgrade: true})
            return
        }
        next(w, r)
    }
}

// trialGated guards the screener: paid plans and admins always pass, free
// plans pass while the CreatedAt-based trial clock still runs.
func (s *server) trialGated(next http.HandlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        u, err := s.sess.Restore()
        if err != nil {
            writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session unavailable"})
            return
        }
        if u == nil {
            writeJSON(w, http.StatusUnauthorized, errorBody{Error: "sign in required"})
            return
        }
        if !u.IsAdmin && !u.Plan.Paid() && s.engine.Trial(u).Expired {
            writeJSON(w, http.StatusPaymentRequired, errorBody{Error: "free trial expired", Upgrade: true})
            return
        }
        next(w, r)
    }
}

type sessionResponse struct {
    User          *user.User              `json:"user"`
    PlanExpired   bool                    `json:"plan_expired"`
    RemainingDays *int                    `json:"remaining_days"`
    Trial         entitlement.TrialStatus `json:"trial"`
}

func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        u, err := s.sess.Restore()
        if err != nil {
            writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session unavailable"})
            return
        }
        resp := sessionResponse{User: u, Trial: s.engine.Trial(u)}
        resp.PlanExpired = s.engine.PlanExpired(u)
        if days, ok := s.engine.RemainingDays(u); ok {
            resp.RemainingDays = &days
        }
        writeJSON(w, http.StatusOK, resp)
    case http.MethodPost:
        var body struct {
            Email string    `json:"email"`
            Name  string    `json:"name"`
            Plan  user.Plan `json:"plan"`
        }
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
            writeJSON(w, http.StatusBadRequest, errorBody{Error: "email required"})
            return
        }
        u, err := s.sess.Register(body.Email, body.Name, body.Plan)
        if err != nil {
            writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
            return
        }
        writeJSON(w, http.StatusCreated, u)
    case http.MethodDelete:
        if err := s.sess.Logout(); err != nil {
            writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
            return
        }
        w.WriteHeader(http.StatusNoContent)
    default:
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    }
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
    symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
    if symbol == "" {
        writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing symbol query param"})
        return
    }
    writeJSON(w, http.StatusOK, s.agg.Quote(r.Context(), symbol))
}

func (s *server) handleQuotes(w http.ResponseWriter, r *http.Request) {
    raw := r.URL.Query().Get("symbols")
    symbols := splitCSV(raw)
    if len(symbols) == 0 {
        writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing symbols query param"})
        return
    }
    if len(symbols) > 100 {
        writeJSON(w, http.StatusBadRequest, errorBody{Error: "too many symbols (max 100)"})
        return
    }
    qs, err := s.agg.Quotes(r.Context(), symbols)
    if err != nil {
        writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"quotes": qs})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
    results := s.agg.Search(r.Context(), r.URL.Query().Get("q"))
    writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
    symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
    if symbol == "" {
        writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing symbol query param"})
        return
    }
    days := 30
    if v := r.URL.Query().Get("days"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 { days = n }
    }
    writeJSON(w, http.StatusOK, map[string]any{"bars": s.agg.History(r.Context(), symbol, days)})
}

func (s *server) handleOptions(w http.ResponseWriter, r *http.Request) {
    symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
    if symbol == "" {
        writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing symbol query param"})
        return
    }
    chain, err := s.agg.OptionsChain(r.Context(), symbol)
    if err != nil {
        if errors.Is(err, quote.ErrCapabilityUnavailable) {
            writeJSON(w, http.StatusNotImplemented, errorBody{Error: "options data is not available on the current data plan"})
            return
        }
        writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
        return
    }
    writeJSON(w, http.StatusOK, chain)
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
    summary, err := s.agg.MarketSummary(r.Context())
    if err != nil {
        writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (s *server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodGet:
        writeJSON(w, http.StatusOK, map[string]any{"watchlist": s.wl.Entries()})
    case http.MethodPost:
        var body struct {
            Symbol string `json:"symbol"`
        }
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Symbol) == "" {
            writeJSON(w, http.StatusBadRequest, errorBody{Error: "symbol required"})
            return
        }
        entry, err := s.wl.Add(r.Context(), body.Symbol)
        if err != nil {
            writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
            return
        }
        writeJSON(w, http.StatusOK, entry)
    case http.MethodDelete:
        symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
        if symbol == "" {
            writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing symbol query param"})
            return
        }
        if err := s.wl.Remove(symbol); err != nil {
            writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
            return
        }
        w.WriteHeader(http.StatusNoContent)
    default:
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    }
}

type screenerRequest struct {
    Strategy  string             `json:"strategy"`
    Overrides *screener.Overrides `json:"overrides,omitempty"`
    SortBy    string              `json:"sort_by"`
    Ascending bool                `json:"ascending"`
}

func (s *server) handleScreener(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    var req screenerRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
        return
    }
    strat, ok := screener.Strategies[req.Strategy]
    if !ok {
        writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown strategy"})
        return
    }
    criteria := req.Overrides.Apply(strat.Criteria)
    sortKey := req.SortBy
    if sortKey == "" {
        sortKey = screener.SortVolume
    }

    // Supersede any in-flight run before starting this one.
    ctx, cancel := context.WithCancel(r.Context())
    s.runMu.Lock()
    if s.cancelRun != nil {
        s.cancelRun()
    }
    s.runSeq++
    seq := s.runSeq
    s.cancelRun = cancel
    s.runMu.Unlock()
    defer func() {
        s.runMu.Lock()
        if s.runSeq == seq {
            s.cancelRun = nil
        }
        s.runMu.Unlock()
        cancel()
    }()

    cands, err := s.scr.Screen(ctx, criteria, sortKey, !req.Ascending)
    if err != nil {
        if errors.Is(err, context.Canceled) {
            writeJSON(w, http.StatusConflict, errorBody{Error: "superseded by a newer screener run"})
            return
        }
        writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"strategy": strat.Name, "candidates": cands})
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
    const maxBody = 1 << 20 // 1MB
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method == http.MethodPost && r.Body != nil {
            r.Body = http.MaxBytesReader(w, r.Body, maxBody)
        }
        next.ServeHTTP(w, r)
    })
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}
