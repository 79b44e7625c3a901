package sqlstore

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/xid"
)

const userColumns = `id, name, email, password, role, location_id`

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, 16)
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY email`); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := insertUser(ctx, s.db, user); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE users
		SET name = ?, email = ?, role = ?, location_id = ?,
			password = CASE WHEN ? = '' THEN password ELSE ? END
		WHERE id = ?
	`), user.Name, user.Email, user.Role, user.LocationID, user.Password, user.Password, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) UpdateUserPassword(ctx context.Context, id string, password string) error {
	if strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET password = ? WHERE id = ?`), password, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func insertUser(ctx context.Context, exec sqlx.ExtContext, user domain.User) error {
	_, err := exec.ExecContext(ctx, exec.Rebind(`
		INSERT INTO users (`+userColumns+`) VALUES (?,?,?,?,?,?)
	`), user.ID, user.Name, strings.ToLower(user.Email), user.Password, user.Role, user.LocationID)
	return err
}
