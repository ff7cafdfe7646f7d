package market

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "time"
)

// WatchlistEntry is one tracked symbol with its last-known pricing snapshot.
type WatchlistEntry struct {
    Symbol        string    `json:"symbol"`
    Name          string    `json:"name"`
    Price         float64   `json:"price"`
    Change        float64   `json:"change"`
    ChangePercent float64   `json:"change_percent"`
    AddedAt       time.Time `json:"added_at"`
}

// WatchlistStore persists the watchlist in full on every mutation and
// returns it verbatim on load. A missing or corrupt stored copy loads as an
// empty list, never an error that blocks startup.
type WatchlistStore interface {
    Load() ([]WatchlistEntry, error)
    Save([]WatchlistEntry) error
}

// Watchlist is the user's persisted symbol list, hydrated from its store
// once at construction.
type Watchlist struct {
    agg   *Aggregator
    store WatchlistStore

    mu      sync.Mutex
    entries []WatchlistEntry
}

func NewWatchlist(agg *Aggregator, store WatchlistStore) (*Watchlist, error) {
    entries, err := store.Load()
    if err != nil {
        return nil, err
    }
    return &Watchlist{agg: agg, store: store, entries: entries}, nil
}

// Entries returns a copy of the current list in insertion order.
func (w *Watchlist) Entries() []WatchlistEntry {
    w.mu.Lock()
    defer w.mu.Unlock()
    out := make([]WatchlistEntry, len(w.entries))
    copy(out, w.entries)
    return out
}

// Add validates the symbol with a quote fetch, then inserts it if absent.
// Adding a symbol already present is a no-op returning the existing entry.
// The full list is persisted before returning.
func (w *Watchlist) Add(ctx context.Context, symbol string) (WatchlistEntry, error) {
    q := w.agg.Quote(ctx, symbol)
    if ctx.Err() != nil {
        return WatchlistEntry{}, ctx.Err()
    }
    if q.Symbol == "" || q.Price <= 0 {
        return WatchlistEntry{}, fmt.Errorf("symbol %q did not resolve to a quote", symbol)
    }

    w.mu.Lock()
    defer w.mu.Unlock()
    for _, e := range w.entries {
        if e.Symbol == q.Symbol {
            return e, nil
        }
    }
    name := displayNames[q.Symbol]
    if name == "" {
        name = q.Symbol
    }
    entry := WatchlistEntry{
        Symbol:        q.Symbol,
        Name:          name,
        Price:         q.Price,
        Change:        q.Change,
        ChangePercent: q.ChangePercent,
        AddedAt:       time.Now().UTC(),
    }
    // Persist a candidate list first; the in-memory list only changes once
    // the store accepted it, so a failed Add leaves no trace.
    next := append(append([]WatchlistEntry(nil), w.entries...), entry)
    if err := w.store.Save(next); err != nil {
        return WatchlistEntry{}, fmt.Errorf("persist watchlist: %w", err)
    }
    w.entries = next
    return entry, nil
}

// Remove drops the symbol unconditionally and persists the result.
func (w *Watchlist) Remove(symbol string) error {
    w.mu.Lock()
    defer w.mu.Unlock()
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    kept := make([]WatchlistEntry, 0, len(w.entries))
    for _, e := range w.entries {
        if e.Symbol != sym {
            kept = append(kept, e)
        }
    }
    if err := w.store.Save(kept); err != nil {
        return err
    }
    w.entries = kept
    return nil
}

// Refresh updates every entry's pricing snapshot in place from fresh
// quotes, keeping symbols and AddedAt untouched, then persists.
func (w *Watchlist) Refresh(ctx context.Context) error {
    w.mu.Lock()
    symbols := make([]string, len(w.entries))
    for i, e := range w.entries {
        symbols[i] = e.Symbol
    }
    w.mu.Unlock()
    if len(symbols) == 0 {
        return nil
    }

    qs, err := w.agg.Quotes(ctx, symbols)
    if err != nil {
        return err
    }
    bySym := make(map[string]int, len(qs))
    for i, q := range qs {
        bySym[q.Symbol] = i
    }

    w.mu.Lock()
    defer w.mu.Unlock()
    next := append([]WatchlistEntry(nil), w.entries...)
    for i := range next {
        idx, ok := bySym[next[i].Symbol]
        if !ok {
            continue
        }
        q := qs[idx]
        next[i].Price = q.Price
        next[i].Change = q.Change
        next[i].ChangePercent = q.ChangePercent
    }
    if err := w.store.Save(next); err != nil {
        return err
    }
    w.entries = next
    return nil
}
