package service

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"lpgpos/backend/internal/access"
	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/report"
	"lpgpos/backend/internal/restock"
	"lpgpos/backend/internal/store"
)

// Reports aggregates sales, stock and expenses for a location scope over a
// range. Results are cached per scope, range and shop day.
func (s *Service) Reports(ctx context.Context, locationID string, rng domain.ReportRange) (domain.Report, error) {
	_, locationID, err := s.scope(ctx, access.ReportSummary, locationID, true)
	if err != nil {
		return domain.Report{}, err
	}
	if rng == "" {
		rng = domain.RangeToday
	}
	now := s.now()
	from, to, err := report.Window(rng, now, s.location)
	if err != nil {
		return domain.Report{}, err
	}

	cacheKey := fmt.Sprintf("%s%s:%s:%s", ReportCachePrefix, locationID, rng, now.In(s.location).Format(report.DateLayout))
	var cached domain.Report
	if ok, err := s.reports.Get(ctx, cacheKey, &cached); err != nil {
		log.Printf("[cache] WARN: report lookup failed key=%s: %v", cacheKey, err)
	} else if ok {
		return cached, nil
	}

	filter := store.Filter{LocationID: locationID, From: from, To: to}
	sales, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return domain.Report{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx, filter)
	if err != nil {
		return domain.Report{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	balances, err := s.repo.ListStock(ctx, locationID)
	if err != nil {
		return domain.Report{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Report{}, err
	}

	out := report.Build(report.Input{
		ShopName:    settings.ShopName,
		LocationID:  locationID,
		Range:       rng,
		From:        from,
		To:          to,
		GeneratedAt: now,
		Sales:       sales,
		Expenses:    expenses,
		Products:    products,
		Balances:    balances,
	})
	if err := s.reports.Set(ctx, cacheKey, out, s.reportTTL); err != nil {
		log.Printf("[cache] WARN: report store failed key=%s: %v", cacheKey, err)
	}
	return out, nil
}

// EndOfDay reconciles a day's cash sales against the counted drawer. An empty
// date means today in the shop's time zone.
func (s *Service) EndOfDay(ctx context.Context, locationID string, date string, countedCash decimal.Decimal) (domain.EndOfDayReport, error) {
	_, locationID, err := s.scope(ctx, access.ReportEOD, locationID, true)
	if err != nil {
		return domain.EndOfDayReport{}, err
	}
	if countedCash.IsNegative() {
		return domain.EndOfDayReport{}, fmt.Errorf("%w: counted cash must not be negative", store.ErrInvalidTransaction)
	}
	from, to, err := report.Day(date, s.now(), s.location)
	if err != nil {
		return domain.EndOfDayReport{}, err
	}

	filter := store.Filter{LocationID: locationID, From: from, To: to}
	sales, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return domain.EndOfDayReport{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx, filter)
	if err != nil {
		return domain.EndOfDayReport{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.EndOfDayReport{}, err
	}

	return report.EndOfDay(report.EndOfDayInput{
		ShopName:    settings.ShopName,
		LocationID:  locationID,
		Date:        from.In(s.location).Format(report.DateLayout),
		Sales:       sales,
		Expenses:    expenses,
		CountedCash: countedCash.Round(2),
	}), nil
}

func (s *Service) RestockSuggestions(ctx context.Context, locationID string) (domain.RestockResponse, error) {
	_, locationID, err := s.scope(ctx, access.StockView, locationID, true)
	if err != nil {
		return domain.RestockResponse{}, err
	}
	mainID, err := s.mainLocationID(ctx)
	if err != nil {
		return domain.RestockResponse{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.RestockResponse{}, err
	}
	balances, err := s.repo.ListStock(ctx, domain.AllLocations)
	if err != nil {
		return domain.RestockResponse{}, err
	}

	return s.restock.Suggest(ctx, restock.Input{
		LocationID:     locationID,
		MainLocationID: mainID,
		Products:       products,
		Balances:       balances,
		Now:            s.now(),
	}), nil
}

// ListAuditLogs lists one shop day of audit entries, newest first.
func (s *Service) ListAuditLogs(ctx context.Context, locationID string, date string, limit int) ([]domain.AuditLog, error) {
	_, locationID, err := s.scope(ctx, access.AuditView, locationID, true)
	if err != nil {
		return nil, err
	}
	from, to, err := report.Day(date, s.now(), s.location)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, store.Filter{
		LocationID: locationID,
		From:       from,
		To:         to,
		Limit:      defaultLimit(limit, 100, 500),
	})
}
