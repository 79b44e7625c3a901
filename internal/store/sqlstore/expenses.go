package sqlstore

import (
	"context"
	"time"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/xid"
)

const expenseColumns = `id, created_at, location_id, user_id, category, amount, note, photo_data_url`

type expenseRow struct {
	domain.Expense
	CreatedAt stamp `db:"created_at"`
}

func (r expenseRow) toDomain() domain.Expense {
	e := r.Expense
	e.Date = r.CreatedAt.Time()
	return e
}

func (s *Store) ListExpenses(ctx context.Context, filter store.Filter) ([]domain.Expense, error) {
	w := s.filterWhere(filter, "created_at", "location_id")
	var rows []expenseRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT `+expenseColumns+` FROM expenses`+w.String()+
		` ORDER BY created_at DESC, id DESC`+limitClause(filter.Limit)), w.args...); err != nil {
		return nil, err
	}
	expenses := make([]domain.Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, row.toDomain())
	}
	return expenses, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	var row expenseRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	e := row.toDomain()
	return &e, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if _, err := s.GetLocation(ctx, expense.LocationID); err != nil {
		return nil, err
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO expenses (`+expenseColumns+`) VALUES (?,?,?,?,?,?,?,?)
	`), expense.ID, s.ts(expense.Date), expense.LocationID, expense.UserID, expense.Category, expense.Amount,
		expense.Note, expense.PhotoDataURL); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &expense, nil
}

func (s *Store) UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE expenses SET category = ?, amount = ?, note = ?, photo_data_url = ? WHERE id = ?
	`), expense.Category, expense.Amount, expense.Note, expense.PhotoDataURL, expense.ID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetExpense(ctx, expense.ID)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM expenses WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type auditRow struct {
	domain.AuditLog
	Stamp stamp `db:"created_at"`
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO audit_logs (id, created_at, location_id, actor_user_id, actor_role, action, entity_type, entity_id, detail)
		VALUES (?,?,?,?,?,?,?,?,?)
	`), entry.ID, s.ts(entry.CreatedAt), entry.LocationID, entry.ActorUserID, entry.ActorRole, entry.Action,
		entry.EntityType, entry.EntityID, entry.Detail)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, filter store.Filter) ([]domain.AuditLog, error) {
	w := s.filterWhere(filter, "created_at", "location_id")
	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, created_at, location_id, actor_user_id, actor_role, action, entity_type, entity_id, detail
		FROM audit_logs`+w.String()+` ORDER BY created_at DESC, id DESC`+limitClause(filter.Limit)), w.args...); err != nil {
		return nil, err
	}
	logs := make([]domain.AuditLog, 0, len(rows))
	for _, row := range rows {
		entry := row.AuditLog
		entry.CreatedAt = row.Stamp.Time()
		logs = append(logs, entry)
	}
	return logs, nil
}
