package access

import (
	"errors"
	"fmt"
	"strings"

	"lpgpos/backend/internal/domain"
)

var ErrForbidden = errors.New("forbidden")

type Action string

const (
	SaleCreate     Action = "sale:create"
	SaleView       Action = "sale:view"
	StockView      Action = "stock:view"
	StockReceive   Action = "stock:receive"
	StockTransfer  Action = "stock:transfer"
	StockAdjust    Action = "stock:adjust"
	ExpenseCreate  Action = "expense:create"
	ExpenseView    Action = "expense:view"
	ExpenseUpdate  Action = "expense:update"
	ExpenseDelete  Action = "expense:delete"
	ReportSummary  Action = "report:summary"
	ReportEOD      Action = "report:eod"
	CatalogManage  Action = "catalog:manage"
	UserManage     Action = "user:manage"
	SettingsManage Action = "settings:manage"
	PasswordChange Action = "password:change"
	AuditView      Action = "audit:view"
)

// Scope says how far a granted action reaches.
type Scope int

const (
	None Scope = iota
	OwnLocation
	AnyLocation
)

var table = map[domain.Role]map[Action]Scope{
	domain.RoleSuperadmin: {
		SaleCreate: AnyLocation, SaleView: AnyLocation,
		StockView: AnyLocation, StockReceive: AnyLocation, StockTransfer: AnyLocation, StockAdjust: AnyLocation,
		ExpenseCreate: AnyLocation, ExpenseView: AnyLocation, ExpenseUpdate: AnyLocation, ExpenseDelete: AnyLocation,
		ReportSummary: AnyLocation, ReportEOD: AnyLocation,
		CatalogManage: AnyLocation, UserManage: AnyLocation, SettingsManage: AnyLocation,
		PasswordChange: AnyLocation, AuditView: AnyLocation,
	},
	domain.RoleAdmin: {
		SaleCreate: OwnLocation, SaleView: OwnLocation,
		StockView: OwnLocation, StockReceive: OwnLocation, StockTransfer: OwnLocation, StockAdjust: OwnLocation,
		ExpenseCreate: OwnLocation, ExpenseView: OwnLocation, ExpenseUpdate: OwnLocation, ExpenseDelete: OwnLocation,
		ReportSummary: OwnLocation, ReportEOD: OwnLocation,
		PasswordChange: OwnLocation, AuditView: OwnLocation,
	},
	domain.RoleStaff: {
		SaleCreate: OwnLocation, SaleView: OwnLocation,
		StockView: OwnLocation, StockReceive: OwnLocation, StockTransfer: OwnLocation, StockAdjust: OwnLocation,
		ExpenseCreate: OwnLocation, ExpenseView: OwnLocation,
		ReportEOD:      OwnLocation,
		PasswordChange: OwnLocation,
	},
}

func ScopeOf(role domain.Role, action Action) Scope {
	return table[role][action]
}

func Can(role domain.Role, action Action) bool {
	return ScopeOf(role, action) != None
}

// Authorize checks the action alone, for operations with no location.
func Authorize(actor domain.Actor, action Action) error {
	if !Can(actor.Role, action) {
		return fmt.Errorf("%w: %s may not %s", ErrForbidden, roleName(actor.Role), action)
	}
	return nil
}

// ResolveLocation returns the location the action applies to. An empty
// request falls back to the actor's own location, or fallback for actors
// that may reach any location. Location-pinned actors may not name another
// location. allowAll admits the "all" read scope for unrestricted actors.
func ResolveLocation(actor domain.Actor, action Action, requested string, fallback string, allowAll bool) (string, error) {
	requested = strings.TrimSpace(requested)
	switch ScopeOf(actor.Role, action) {
	case AnyLocation:
		if requested == "" {
			requested = fallback
		}
		if requested == domain.AllLocations && !allowAll {
			return "", fmt.Errorf("%w: a single location is required for %s", ErrForbidden, action)
		}
		return requested, nil
	case OwnLocation:
		if actor.LocationID == "" {
			return "", fmt.Errorf("%w: no location assigned", ErrForbidden)
		}
		if requested != "" && requested != actor.LocationID {
			return "", fmt.Errorf("%w: %s is limited to location %s", ErrForbidden, roleName(actor.Role), actor.LocationID)
		}
		return actor.LocationID, nil
	default:
		return "", fmt.Errorf("%w: %s may not %s", ErrForbidden, roleName(actor.Role), action)
	}
}

func roleName(role domain.Role) string {
	if role == "" {
		return "anonymous"
	}
	return string(role)
}
