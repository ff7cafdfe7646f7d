package store

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"

    "thetaflow/internal/market"
    "thetaflow/internal/user"
)

// The two persisted records are independent JSON blobs, each under a fixed
// path, loaded once at startup and rewritten in full on every mutation.
// A missing or corrupt file reads back as "no prior state" so startup can
// never crash on bad local data.

// UserStore persists the account profile.
type UserStore struct {
    Path string
}

func (s *UserStore) Load() (*user.User, error) {
    b, err := os.ReadFile(s.Path)
    if err != nil {
        if errors.Is(err, os.ErrNotExist) { return nil, nil }
        return nil, fmt.Errorf("read profile: %w", err)
    }
    var u user.User
    if err := json.Unmarshal(b, &u); err != nil {
        // Corrupt state is indistinguishable from logged-out.
        return nil, nil
    }
    return &u, nil
}

func (s *UserStore) Save(u *user.User) error {
    return writeJSON(s.Path, u)
}

func (s *UserStore) Clear() error {
    err := os.Remove(s.Path)
    if err != nil && !errors.Is(err, os.ErrNotExist) {
        return fmt.Errorf("clear profile: %w", err)
    }
    return nil
}

// WatchlistStore persists the watchlist.
type WatchlistStore struct {
    Path string
}

func (s *WatchlistStore) Load() ([]market.WatchlistEntry, error) {
    b, err := os.ReadFile(s.Path)
    if err != nil {
        if errors.Is(err, os.ErrNotExist) { return nil, nil }
        return nil, fmt.Errorf("read watchlist: %w", err)
    }
    var entries []market.WatchlistEntry
    if err := json.Unmarshal(b, &entries); err != nil {
        return nil, nil
    }
    return entries, nil
}

func (s *WatchlistStore) Save(entries []market.WatchlistEntry) error {
    if entries == nil { entries = []market.WatchlistEntry{} }
    return writeJSON(s.Path, entries)
}

// writeJSON rewrites the file in full via a temp file and rename, so a
// crash mid-write cannot leave a half-written blob behind.
func writeJSON(path string, v any) error {
    b, err := json.MarshalIndent(v, "", "  ")
    if err != nil {
        return fmt.Errorf("encode: %w", err)
    }
    dir := filepath.Dir(path)
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir: %w", err)
    }
    tmp, err := os.CreateTemp(dir, ".tmp-*")
    if err != nil {
        return fmt.Errorf("temp file: %w", err)
    }
    name := tmp.Name()
    if _, err := tmp.Write(b); err != nil {
        tmp.Close()
        os.Remove(name)
        return fmt.Errorf("write: %w", err)
    }
    if err := tmp.Close(); err != nil {
        os.Remove(name)
        return fmt.Errorf("close: %w", err)
    }
    if err := os.Rename(name, path); err != nil {
        os.Remove(name)
        return fmt.Errorf("rename: %w", err)
    }
    return nil
}
