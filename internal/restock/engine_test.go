package restock

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"lpgpos/backend/internal/domain"
)

type mapCache struct {
	data map[string][]byte
	hits int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func fixture() Input {
	return Input{
		MainLocationID: "l1",
		Products: []domain.Product{
			{ID: "p15", Name: "Petron Gasul 11 kg Cylinder", LowStockThreshold: 10},
			{ID: "p16", Name: "Petron Gasul 22 kg Cylinder", LowStockThreshold: 5},
			{ID: "p8", Name: "LPG Rubber Hose (per meter)", LowStockThreshold: 50},
			{ID: "p27", Name: "Fiesta Gas Stove Set Promo", LowStockThreshold: 2, IsBundle: true},
		},
		Balances: []domain.StockBalance{
			{ProductID: "p15", LocationID: "l1", FullQty: 45},
			{ProductID: "p15", LocationID: "l3", FullQty: 0},
			{ProductID: "p16", LocationID: "l1", FullQty: 4},
			{ProductID: "p16", LocationID: "l3", FullQty: 3},
			{ProductID: "p8", LocationID: "l1", FullQty: 250},
			{ProductID: "p27", LocationID: "l1", FullQty: 0},
		},
		Now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}
}

func TestSuggestPrefersTransferFromMainWhenItHasSurplus(t *testing.T) {
	in := fixture()
	in.LocationID = "l3"

	resp := NewEngine(nil, 0).Suggest(context.Background(), in)
	if len(resp.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %+v", resp.Suggestions)
	}

	first := resp.Suggestions[0]
	if first.ProductID != "p15" || first.Severity != SeverityCritical {
		t.Fatalf("expected empty p15 to come first as critical, got %+v", first)
	}
	if first.Action != domain.RestockActionTransfer || first.SourceLocationID != "l1" || first.RecommendedQty != 20 {
		t.Fatalf("expected transfer of 20 from l1, got %+v", first)
	}

	second := resp.Suggestions[1]
	if second.ProductID != "p16" || second.Action != domain.RestockActionReceive {
		t.Fatalf("expected p16 receive since main is itself low, got %+v", second)
	}
	if second.RecommendedQty != 7 {
		t.Fatalf("expected 7 to reach twice the threshold, got %d", second.RecommendedQty)
	}
}

func TestSuggestSkipsBundlesAndHealthyStock(t *testing.T) {
	in := fixture()
	in.LocationID = "l1"

	resp := NewEngine(nil, 0).Suggest(context.Background(), in)
	if len(resp.Suggestions) != 1 || resp.Suggestions[0].ProductID != "p16" {
		t.Fatalf("expected only p16 at main, got %+v", resp.Suggestions)
	}
	if resp.Suggestions[0].Severity != SeverityMedium {
		t.Fatalf("expected medium severity for 4 of 5, got %s", resp.Suggestions[0].Severity)
	}
}

func TestSuggestServesFromCacheUntilInvalidated(t *testing.T) {
	c := newMapCache()
	engine := NewEngine(c, time.Minute)
	ctx := context.Background()
	in := fixture()
	in.LocationID = domain.AllLocations

	first := engine.Suggest(ctx, in)
	in.Balances = nil
	second := engine.Suggest(ctx, in)
	if c.hits != 1 || len(second.Suggestions) != len(first.Suggestions) {
		t.Fatalf("expected cached response, hits=%d", c.hits)
	}

	if err := engine.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	third := engine.Suggest(ctx, in)
	if len(third.Suggestions) != 0 {
		t.Fatalf("expected fresh computation after invalidation, got %+v", third.Suggestions)
	}
}
