package restock

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"lpgpos/backend/internal/cache"
	"lpgpos/backend/internal/domain"
)

// CachePrefix namespaces every cached suggestion list.
const CachePrefix = "lpgpos:restock:"

const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

type Engine struct {
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewEngine(cacheStore cache.Cache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

type Input struct {
	// LocationID is one location or domain.AllLocations.
	LocationID     string
	MainLocationID string
	Products       []domain.Product
	Balances       []domain.StockBalance
	Now            time.Time
}

// Suggest lists every stocked product at or below its low-stock threshold in
// scope, advising a transfer from the main location when it has units above
// its own threshold and a supplier receive otherwise.
func (e *Engine) Suggest(ctx context.Context, in Input) domain.RestockResponse {
	cacheKey := buildCacheKey(in.LocationID)
	var cached domain.RestockResponse
	if ok, err := e.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
		return cached
	}

	products := make(map[string]domain.Product, len(in.Products))
	for _, p := range in.Products {
		products[p.ID] = p
	}
	mainFull := make(map[string]int)
	for _, row := range in.Balances {
		if row.LocationID == in.MainLocationID {
			mainFull[row.ProductID] = row.FullQty
		}
	}

	all := in.LocationID == "" || in.LocationID == domain.AllLocations
	suggestions := make([]domain.RestockSuggestion, 0, 8)
	for _, row := range in.Balances {
		if !all && row.LocationID != in.LocationID {
			continue
		}
		product, ok := products[row.ProductID]
		if !ok || product.IsBundle || product.LowStockThreshold < 1 {
			continue
		}
		if row.FullQty > product.LowStockThreshold {
			continue
		}

		s := domain.RestockSuggestion{
			LocationID:     row.LocationID,
			ProductID:      product.ID,
			Name:           product.Name,
			FullQty:        row.FullQty,
			Threshold:      product.LowStockThreshold,
			RecommendedQty: targetLevel(product) - max(row.FullQty, 0),
			Action:         domain.RestockActionReceive,
			Severity:       severity(row.FullQty, product.LowStockThreshold),
		}
		if row.LocationID != in.MainLocationID {
			surplus := mainFull[product.ID] - product.LowStockThreshold
			if surplus > 0 {
				s.Action = domain.RestockActionTransfer
				s.SourceLocationID = in.MainLocationID
				s.RecommendedQty = min(s.RecommendedQty, surplus)
			}
		}
		suggestions = append(suggestions, s)
	}

	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if severityRank(a.Severity) != severityRank(b.Severity) {
			return severityRank(a.Severity) < severityRank(b.Severity)
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		return a.Name < b.Name
	})

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	resp := domain.RestockResponse{
		LocationID:  in.LocationID,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Suggestions: suggestions,
	}
	_ = e.cache.Set(ctx, cacheKey, resp, e.cacheTTL)
	return resp
}

// Invalidate drops cached suggestions after any stock change.
func (e *Engine) Invalidate(ctx context.Context) error {
	return e.cache.DeletePrefix(ctx, CachePrefix)
}

// targetLevel is the quantity a restock aims for: twice the threshold.
func targetLevel(p domain.Product) int {
	return p.LowStockThreshold * 2
}

func severity(full int, threshold int) string {
	switch {
	case full <= 0:
		return SeverityCritical
	case full*2 <= threshold:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

func severityRank(s string) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	default:
		return 2
	}
}

func buildCacheKey(locationID string) string {
	if locationID == "" {
		locationID = domain.AllLocations
	}
	hash := sha1.Sum([]byte(strings.ToLower(locationID)))
	return CachePrefix + hex.EncodeToString(hash[:])
}
