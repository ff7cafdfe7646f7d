package main

import (
    "context"
    "flag"
    "fmt"
    "log"
    "os"
    "text/tabwriter"
    "time"

    "github.com/joho/godotenv"

    "thetaflow/internal/config"
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
)

func main() {
    _ = godotenv.Load()

    var (
        cfgPath  = flag.String("config", "", "path to config file")
        strategy = flag.String("strategy", "wheeling", "strategy profile: wheeling, iron-condor, covered-call, cash-secured-put")
        sortBy   = flag.String("sort", screener.SortScore, "sort key: volume, price, score, changePercent, impliedVolatility")
        asc      = flag.Bool("asc", false, "sort ascending instead of descending")
        limit    = flag.Int("limit", 25, "max rows to print")
        timeout  = flag.Duration("timeout", 2*time.Minute, "overall run timeout")
    )
    flag.Parse()

    strat, ok := screener.Strategies[*strategy]
    if !ok {
        fmt.Fprintf(os.Stderr, "unknown strategy %q, available:\n", *strategy)
        for name := range screener.Strategies {
            fmt.Fprintf(os.Stderr, "  %s\n", name)
        }
        os.Exit(2)
    }

    cfg, err := config.Load(*cfgPath)
    if err != nil { log.Fatalf("config: %v", err) }

    httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
    agg := market.New(buildProviders(cfg, httpClient), &synthetic.Generator{})

    scr := screener.New(agg)
    if cfg.Screener.BatchSize > 0 { scr.BatchSize = cfg.Screener.BatchSize }

    ctx, cancel := context.WithTimeout(context.Background(), *timeout)
    defer cancel()

    start := time.Now()
    cands, err := scr.Screen(ctx, strat.Criteria, *sortBy, !*asc)
    if err != nil { log.Fatalf("screen: %v", err) }

    fmt.Printf("%s: %d candidates in %s\n\n", strat.Name, len(cands), time.Since(start).Round(time.Millisecond))

    w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
    fmt.Fprintln(w, "SYMBOL\tPRICE\tCHG%\tVOLUME\tSPREAD\tIV\tDTE\tSCORE\tSRC")
    for i, c := range cands {
        if *limit > 0 && i >= *limit { break }
        src := "live"
        if c.Synthetic { src = "synthetic" }
        fmt.Fprintf(w, "%s\t%.2f\t%+.2f\t%d\t%.3f\t%.2f\t%d\t%.1f\t%s\n",
            c.Symbol, c.Price, c.ChangePercent, c.Volume, c.BidAskSpread, c.ImpliedVol, c.DaysToExpiry, c.Score, src)
    }
    _ = w.Flush()
}

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
