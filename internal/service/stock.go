package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"lpgpos/backend/internal/access"
	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/report"
	"lpgpos/backend/internal/store"
)

func (s *Service) ListStock(ctx context.Context, locationID string) ([]domain.StockBalance, error) {
	_, locationID, err := s.scope(ctx, access.StockView, locationID, true)
	if err != nil {
		return nil, err
	}
	return s.repo.ListStock(ctx, locationID)
}

// stockable rejects bundles: their stock lives on their components.
func (s *Service) stockable(ctx context.Context, productID string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	if product.IsBundle {
		return domain.Product{}, fmt.Errorf("%w: bundles are stocked through their components", store.ErrInvalidTransaction)
	}
	return *product, nil
}

func (s *Service) ReceiveStock(ctx context.Context, req domain.StockReceiveRequest) (domain.StockReceive, error) {
	actor, locationID, err := s.scope(ctx, access.StockReceive, req.LocationID, false)
	if err != nil {
		return domain.StockReceive{}, err
	}
	product, err := s.stockable(ctx, req.ProductID)
	if err != nil {
		return domain.StockReceive{}, err
	}

	record, err := s.repo.ReceiveStock(ctx, domain.StockReceive{
		Date:       s.now(),
		LocationID: locationID,
		ProductID:  product.ID,
		Qty:        req.Qty,
		UserID:     actor.UserID,
	})
	if err != nil {
		return domain.StockReceive{}, err
	}

	s.invalidate(ctx, locationID)
	s.logAudit(ctx, locationID, "stock_receive", "product", product.ID, fmt.Sprintf("qty=%d", record.Qty))
	return *record, nil
}

// ImportStockReceipts receives every valid row of an XLSX sheet into one
// location. Bad rows are reported back and do not stop the rest.
func (s *Service) ImportStockReceipts(ctx context.Context, locationID string, workbook io.Reader) (domain.StockImportResult, error) {
	actor, locationID, err := s.scope(ctx, access.StockReceive, locationID, false)
	if err != nil {
		return domain.StockImportResult{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.StockImportResult{}, err
	}
	lines, issues, err := report.ParseStockImport(workbook, products)
	if err != nil {
		return domain.StockImportResult{}, err
	}

	result := domain.StockImportResult{
		LocationID: locationID,
		Received:   make([]domain.StockReceive, 0, len(lines)),
		Skipped:    issues,
	}
	for _, line := range lines {
		record, err := s.repo.ReceiveStock(ctx, domain.StockReceive{
			Date:       s.now(),
			LocationID: locationID,
			ProductID:  line.ProductID,
			Qty:        line.Qty,
			UserID:     actor.UserID,
		})
		if err != nil {
			result.Skipped = append(result.Skipped, domain.StockImportIssue{Row: line.Row, Value: line.ProductID, Reason: err.Error()})
			continue
		}
		result.Received = append(result.Received, *record)
	}

	if len(result.Received) > 0 {
		s.invalidate(ctx, locationID)
	}
	s.logAudit(ctx, locationID, "stock_import", "location", locationID, fmt.Sprintf("received=%d,skipped=%d", len(result.Received), len(result.Skipped)))
	return result, nil
}

// TransferStock moves full cylinders out of the actor's location (or any
// location for unrestricted actors) into another location.
func (s *Service) TransferStock(ctx context.Context, req domain.StockTransferRequest) (domain.StockTransfer, error) {
	actor, fromID, err := s.scope(ctx, access.StockTransfer, req.FromLocationID, false)
	if err != nil {
		return domain.StockTransfer{}, err
	}
	toID := strings.TrimSpace(req.ToLocationID)
	if toID == "" {
		return domain.StockTransfer{}, fmt.Errorf("%w: destination location is required", store.ErrInvalidTransaction)
	}
	if _, err := s.repo.GetLocation(ctx, toID); err != nil {
		return domain.StockTransfer{}, err
	}
	product, err := s.stockable(ctx, req.ProductID)
	if err != nil {
		return domain.StockTransfer{}, err
	}

	record, err := s.repo.TransferStock(ctx, domain.StockTransfer{
		Date:           s.now(),
		FromLocationID: fromID,
		ToLocationID:   toID,
		ProductID:      product.ID,
		Qty:            req.Qty,
		UserID:         actor.UserID,
	})
	if err != nil {
		return domain.StockTransfer{}, err
	}

	s.invalidate(ctx, fromID, toID)
	s.logAudit(ctx, fromID, "stock_transfer", "product", product.ID, fmt.Sprintf("qty=%d,to=%s", record.Qty, toID))
	return *record, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.StockAdjustment, error) {
	actor, locationID, err := s.scope(ctx, access.StockAdjust, req.LocationID, false)
	if err != nil {
		return domain.StockAdjustment{}, err
	}
	product, err := s.stockable(ctx, req.ProductID)
	if err != nil {
		return domain.StockAdjustment{}, err
	}

	record, err := s.repo.AdjustStock(ctx, domain.StockAdjustment{
		Date:        s.now(),
		LocationID:  locationID,
		ProductID:   product.ID,
		NewFullQty:  req.NewFullQty,
		NewEmptyQty: req.NewEmptyQty,
		Reason:      strings.TrimSpace(req.Reason),
		UserID:      actor.UserID,
	})
	if err != nil {
		return domain.StockAdjustment{}, err
	}

	s.invalidate(ctx, locationID)
	s.logAudit(ctx, locationID, "stock_adjust", "product", product.ID,
		fmt.Sprintf("full=%d->%d,empty=%d->%d,reason=%s", record.OldFullQty, record.NewFullQty, record.OldEmptyQty, record.NewEmptyQty, record.Reason))
	return *record, nil
}

func (s *Service) ListMovements(ctx context.Context, locationID string, rng domain.ReportRange, limit int) (domain.StockMovements, error) {
	_, locationID, err := s.scope(ctx, access.StockView, locationID, true)
	if err != nil {
		return domain.StockMovements{}, err
	}
	filter, err := s.window(locationID, rng, defaultLimit(limit, 200, 1000))
	if err != nil {
		return domain.StockMovements{}, err
	}
	return s.repo.ListMovements(ctx, filter)
}

func (s *Service) ListExpenses(ctx context.Context, locationID string, rng domain.ReportRange, limit int) ([]domain.Expense, error) {
	_, locationID, err := s.scope(ctx, access.ExpenseView, locationID, true)
	if err != nil {
		return nil, err
	}
	filter, err := s.window(locationID, rng, defaultLimit(limit, 200, 1000))
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, filter)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseRequest) (domain.Expense, error) {
	actor, locationID, err := s.scope(ctx, access.ExpenseCreate, req.LocationID, false)
	if err != nil {
		return domain.Expense{}, err
	}
	expense, err := expenseFromRequest(req)
	if err != nil {
		return domain.Expense{}, err
	}
	expense.Date = s.now()
	expense.LocationID = locationID
	expense.UserID = actor.UserID

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return domain.Expense{}, err
	}

	s.invalidate(ctx, locationID)
	s.logAudit(ctx, locationID, "expense_create", "expense", created.ID, fmt.Sprintf("category=%s,amount=%s", created.Category, created.Amount))
	return *created, nil
}

func (s *Service) UpdateExpense(ctx context.Context, id string, req domain.ExpenseRequest) (domain.Expense, error) {
	actor, err := s.authorize(ctx, access.ExpenseUpdate)
	if err != nil {
		return domain.Expense{}, err
	}
	existing, err := s.repo.GetExpense(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Expense{}, err
	}
	if err := checkOwned(actor, access.ExpenseUpdate, existing.LocationID); err != nil {
		return domain.Expense{}, err
	}
	changes, err := expenseFromRequest(req)
	if err != nil {
		return domain.Expense{}, err
	}

	updated := *existing
	updated.Category = changes.Category
	updated.Amount = changes.Amount
	updated.Note = changes.Note
	updated.PhotoDataURL = changes.PhotoDataURL
	saved, err := s.repo.UpdateExpense(ctx, updated)
	if err != nil {
		return domain.Expense{}, err
	}

	s.invalidate(ctx, saved.LocationID)
	s.logAudit(ctx, saved.LocationID, "expense_update", "expense", saved.ID, fmt.Sprintf("category=%s,amount=%s", saved.Category, saved.Amount))
	return *saved, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	actor, err := s.authorize(ctx, access.ExpenseDelete)
	if err != nil {
		return err
	}
	existing, err := s.repo.GetExpense(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if err := checkOwned(actor, access.ExpenseDelete, existing.LocationID); err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, existing.ID); err != nil {
		return err
	}

	s.invalidate(ctx, existing.LocationID)
	s.logAudit(ctx, existing.LocationID, "expense_delete", "expense", existing.ID, fmt.Sprintf("category=%s,amount=%s", existing.Category, existing.Amount))
	return nil
}

func expenseFromRequest(req domain.ExpenseRequest) (domain.Expense, error) {
	category := ""
	for _, allowed := range domain.ExpenseCategories {
		if strings.EqualFold(allowed, strings.TrimSpace(req.Category)) {
			category = allowed
			break
		}
	}
	if category == "" {
		return domain.Expense{}, fmt.Errorf("%w: unknown expense category %q", store.ErrInvalidTransaction, req.Category)
	}
	if !req.Amount.IsPositive() {
		return domain.Expense{}, fmt.Errorf("%w: expense amount must be positive", store.ErrInvalidTransaction)
	}
	return domain.Expense{
		Category:     category,
		Amount:       req.Amount.Round(2),
		Note:         strings.TrimSpace(req.Note),
		PhotoDataURL: strings.TrimSpace(req.PhotoDataURL),
	}, nil
}
