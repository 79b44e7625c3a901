package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lpgpos/backend/internal/access"
	"lpgpos/backend/internal/cache"
	"lpgpos/backend/internal/domain"
	"lpgpos/backend/internal/report"
	"lpgpos/backend/internal/restock"
	"lpgpos/backend/internal/store"
	"lpgpos/backend/internal/xid"
)

var (
	ErrForbidden          = access.ErrForbidden
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ReportCachePrefix namespaces cached reports; keys continue with the
// location scope so writes can drop only what they affect.
const ReportCachePrefix = "lpgpos:report:"

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Passwords hashes and checks user passwords.
type Passwords interface {
	HashPassword(plain string) (string, error)
	// CheckPassword reports whether plain matches stored, and whether stored
	// is a legacy plaintext value that should be replaced by a hash.
	CheckPassword(stored string, plain string) (match bool, legacy bool)
}

type Config struct {
	ReportCache cache.Cache
	ReportTTL   time.Duration
	// Location is the shop's time zone; report ranges and days follow it.
	Location  *time.Location
	Passwords Passwords
}

type Service struct {
	repo      store.Repository
	restock   *restock.Engine
	reports   cache.Cache
	reportTTL time.Duration
	location  *time.Location
	passwords Passwords
	now       func() time.Time
}

func New(repo store.Repository, restocker *restock.Engine, cfg Config) *Service {
	if restocker == nil {
		restocker = restock.NewEngine(nil, 0)
	}
	if cfg.ReportCache == nil {
		cfg.ReportCache = cache.Noop{}
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Service{
		repo:      repo,
		restock:   restocker,
		reports:   cfg.ReportCache,
		reportTTL: cfg.ReportTTL,
		location:  cfg.Location,
		passwords: cfg.Passwords,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) authorize(ctx context.Context, action access.Action) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, ErrUnauthenticated
	}
	if err := access.Authorize(actor, action); err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}

// scope resolves the location an action applies to. Reads may pass allowAll
// so unrestricted actors default to every location; writes default to the
// Main location.
func (s *Service) scope(ctx context.Context, action access.Action, requested string, allowAll bool) (domain.Actor, string, error) {
	actor, err := s.authorize(ctx, action)
	if err != nil {
		return domain.Actor{}, "", err
	}

	fallback := domain.AllLocations
	if !allowAll && strings.TrimSpace(requested) == "" && access.ScopeOf(actor.Role, action) == access.AnyLocation {
		fallback, err = s.mainLocationID(ctx)
		if err != nil {
			return domain.Actor{}, "", err
		}
	}

	locationID, err := access.ResolveLocation(actor, action, requested, fallback, allowAll)
	if err != nil {
		return domain.Actor{}, "", err
	}
	if locationID != domain.AllLocations {
		if _, err := s.repo.GetLocation(ctx, locationID); err != nil {
			return domain.Actor{}, "", err
		}
	}
	return actor, locationID, nil
}

// checkOwned rejects actors pinned to another location than the record's.
func checkOwned(actor domain.Actor, action access.Action, locationID string) error {
	if access.ScopeOf(actor.Role, action) == access.AnyLocation {
		return nil
	}
	if actor.LocationID == "" || actor.LocationID != locationID {
		return fmt.Errorf("%w: record belongs to another location", ErrForbidden)
	}
	return nil
}

func (s *Service) mainLocationID(ctx context.Context) (string, error) {
	locations, err := s.repo.ListLocations(ctx)
	if err != nil {
		return "", err
	}
	for _, location := range locations {
		if location.Type == domain.LocationTypeMain {
			return location.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no main location configured", store.ErrNotFound)
}

// invalidate drops cached reports for the touched locations and every
// cached restock list.
func (s *Service) invalidate(ctx context.Context, locationIDs ...string) {
	if err := s.restock.Invalidate(ctx); err != nil {
		log.Printf("[cache] WARN: failed to invalidate restock suggestions: %v", err)
	}
	prefixes := []string{ReportCachePrefix + domain.AllLocations + ":"}
	for _, id := range locationIDs {
		if id != "" && id != domain.AllLocations {
			prefixes = append(prefixes, ReportCachePrefix+id+":")
		}
	}
	if len(locationIDs) == 0 {
		prefixes = []string{ReportCachePrefix}
	}
	for _, prefix := range prefixes {
		if err := s.reports.DeletePrefix(ctx, prefix); err != nil {
			log.Printf("[cache] WARN: failed to invalidate reports prefix=%s: %v", prefix, err)
		}
	}
}

func (s *Service) logAudit(ctx context.Context, locationID string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{UserID: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:          xid.New("audit"),
		LocationID:  locationID,
		ActorUserID: actor.UserID,
		ActorRole:   string(actor.Role),
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Detail:      detail,
		CreatedAt:   s.now(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

// window turns an optional range into a filter; an empty range is unbounded.
func (s *Service) window(locationID string, rng domain.ReportRange, limit int) (store.Filter, error) {
	filter := store.Filter{LocationID: locationID, Limit: limit}
	if strings.TrimSpace(string(rng)) == "" {
		return filter, nil
	}
	from, to, err := report.Window(rng, s.now(), s.location)
	if err != nil {
		return store.Filter{}, err
	}
	filter.From, filter.To = from, to
	return filter, nil
}

func defaultLimit(limit int, fallback int, max int) int {
	if limit < 1 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
