package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type AlphaVantage struct {
    Enabled               bool   `json:"enabled"`
    APIKey                string `json:"api_key"`
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
    CacheTTLSeconds       int    `json:"cache_ttl_sec"`
    CacheMaxItems         int    `json:"cache_max_items"`
}

type Finnhub struct {
    Enabled               bool   `json:"enabled"`
    Token                 string `json:"token"`
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
    CacheTTLSeconds       int    `json:"cache_ttl_sec"`
    CacheMaxItems         int    `json:"cache_max_items"`
}

type Polygon struct {
    Enabled               bool   `json:"enabled"`
    APIKey                string `json:"api_key"`
    Endpoint              string `json:"endpoint"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec"`
    Burst                 int    `json:"burst"`
    CacheTTLSeconds       int    `json:"cache_ttl_sec"`
    CacheMaxItems         int    `json:"cache_max_items"`
}

type Storage struct {
    UserFile      string `json:"user_file"`
    WatchlistFile string `json:"watchlist_file"`
}

type Screener struct {
    BatchSize int `json:"batch_size"`
}

type Config struct {
    Server       Server       `json:"server"`
    AlphaVantage AlphaVantage `json:"alphavantage"`
    Finnhub      Finnhub      `json:"finnhub"`
    Polygon      Polygon      `json:"polygon"`
    Storage      Storage      `json:"storage"`
    Screener     Screener     `json:"screener"`
    AdminEmail   string       `json:"admin_email"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 10},
        AlphaVantage: AlphaVantage{
            Enabled:  true,
            Endpoint: "https://www.alphavantage.co",
            // Free tier: 25 calls per day; keep the bucket tight.
            MaxRequestsPerMinute: 5,
            Burst:                1,
            CacheTTLSeconds:      60,
            CacheMaxItems:        10000,
        },
        Finnhub: Finnhub{
            Enabled:              true,
            Endpoint:             "https://finnhub.io/api/v1",
            MaxRequestsPerMinute: 60,
            Burst:                10,
            CacheTTLSeconds:      15,
            CacheMaxItems:        10000,
        },
        Polygon: Polygon{
            Enabled:              true,
            Endpoint:             "https://api.polygon.io/v2",
            MaxRequestsPerMinute: 5,
            Burst:                1,
            CacheTTLSeconds:      60,
            CacheMaxItems:        10000,
        },
        Storage: Storage{
            UserFile:      "data/user.json",
            WatchlistFile: "data/watchlist.json",
        },
        Screener: Screener{BatchSize: 10},
    }
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }
    if v := os.Getenv("ADMIN_EMAIL"); v != "" { cfg.AdminEmail = v }
    if v := os.Getenv("USER_FILE"); v != "" { cfg.Storage.UserFile = v }
    if v := os.Getenv("WATCHLIST_FILE"); v != "" { cfg.Storage.WatchlistFile = v }
    if v := os.Getenv("SCREENER_BATCH_SIZE"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Screener.BatchSize = x }
    }

    if v := os.Getenv("ALPHAVANTAGE_ENABLED"); v != "" { cfg.AlphaVantage.Enabled = parseBool(v, cfg.AlphaVantage.Enabled) }
    if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" { cfg.AlphaVantage.APIKey = v }
    if v := os.Getenv("ALPHAVANTAGE_ENDPOINT"); v != "" { cfg.AlphaVantage.Endpoint = v }
    if v := os.Getenv("ALPHAVANTAGE_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.AlphaVantage.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("ALPHAVANTAGE_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.AlphaVantage.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("ALPHAVANTAGE_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.AlphaVantage.Burst = x }
    }
    if v := os.Getenv("ALPHAVANTAGE_CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.AlphaVantage.CacheTTLSeconds = x }
    }
    if v := os.Getenv("ALPHAVANTAGE_CACHE_MAX_ITEMS"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.AlphaVantage.CacheMaxItems = x }
    }

    if v := os.Getenv("FINNHUB_ENABLED"); v != "" { cfg.Finnhub.Enabled = parseBool(v, cfg.Finnhub.Enabled) }
    if v := os.Getenv("FINNHUB_TOKEN"); v != "" { cfg.Finnhub.Token = v }
    if v := os.Getenv("FINNHUB_ENDPOINT"); v != "" { cfg.Finnhub.Endpoint = v }
    if v := os.Getenv("FINNHUB_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Finnhub.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("FINNHUB_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Finnhub.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("FINNHUB_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Finnhub.Burst = x }
    }
    if v := os.Getenv("FINNHUB_CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Finnhub.CacheTTLSeconds = x }
    }
    if v := os.Getenv("FINNHUB_CACHE_MAX_ITEMS"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Finnhub.CacheMaxItems = x }
    }

    if v := os.Getenv("POLYGON_ENABLED"); v != "" { cfg.Polygon.Enabled = parseBool(v, cfg.Polygon.Enabled) }
    if v := os.Getenv("POLYGON_API_KEY"); v != "" { cfg.Polygon.APIKey = v }
    if v := os.Getenv("POLYGON_ENDPOINT"); v != "" { cfg.Polygon.Endpoint = v }
    if v := os.Getenv("POLYGON_MAX_RPM"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Polygon.MaxRequestsPerMinute = x }
    }
    if v := os.Getenv("POLYGON_MIN_INTERVAL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Polygon.MinRequestIntervalSec = x }
    }
    if v := os.Getenv("POLYGON_BURST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Polygon.Burst = x }
    }
    if v := os.Getenv("POLYGON_CACHE_TTL_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Polygon.CacheTTLSeconds = x }
    }
    if v := os.Getenv("POLYGON_CACHE_MAX_ITEMS"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Polygon.CacheMaxItems = x }
    }
}

func parseBool(v string, def bool) bool {
    switch strings.ToLower(v) {
    case "1", "true", "yes", "y":
        return true
    case "0", "false", "no", "n":
        return false
    }
    return def
}
