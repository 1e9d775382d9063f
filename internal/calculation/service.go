// Package calculation runs pricing calculations against the stored category
// catalog and keeps every completed result as an immutable snapshot.
package calculation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/landedcost/internal/cache"
	"github.com/Simplici0/landedcost/internal/metrics"
	"github.com/Simplici0/landedcost/internal/pricing"
	"github.com/Simplici0/landedcost/internal/store"
)

// ErrNotFound is returned when a calculation or category does not exist.
var ErrNotFound = store.ErrNotFound

// Repository is the persistence the service needs.
type Repository interface {
	ListCategories(ctx context.Context) ([]pricing.Category, error)
	GetCategory(ctx context.Context, id int64) (pricing.Category, error)
	InsertCategory(ctx context.Context, c pricing.Category) (pricing.Category, error)
	UpdateCategory(ctx context.Context, c pricing.Category) error
	SaveCalculation(ctx context.Context, res *pricing.CalculationResult) error
	GetCalculation(ctx context.Context, id string) (*pricing.CalculationResult, error)
	ListCalculations(ctx context.Context, positionID string) ([]store.CalculationSummary, error)
}

// Request is an engine request plus the position it belongs to.
type Request struct {
	PositionID string `json:"position_id,omitempty"`
	pricing.Request
}

// Service is safe for concurrent use.
type Service struct {
	engine  *pricing.Engine
	repo    Repository
	cache   *cache.Categories
	metrics *metrics.Metrics
	logger  *slog.Logger

	now   func() time.Time
	newID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithCache reads categories through c.
func WithCache(c *cache.Categories) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records operations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs replaces the UUID generator, for tests.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService returns a service backed by repo.
func NewService(engine *pricing.Engine, repo Repository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolver reads the category list once and snapshots it for one operation.
func (s *Service) resolver(ctx context.Context) (*pricing.Resolver, error) {
	categories, err := s.categories(ctx)
	if err != nil {
		return nil, err
	}
	return pricing.NewResolver(categories), nil
}

func (s *Service) categories(ctx context.Context) ([]pricing.Category, error) {
	if s.cache == nil {
		categories, err := s.repo.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		return categories, nil
	}

	categories, hit, err := s.cache.Load(ctx, s.repo.ListCategories)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	s.metrics.ObserveCacheLookup(hit)
	return categories, nil
}

// ListCategories returns the category catalog.
func (s *Service) ListCategories(ctx context.Context) ([]pricing.Category, error) {
	return s.categories(ctx)
}

// Start resolves the category and reports which parameters are still missing.
func (s *Service) Start(ctx context.Context, req Request) (pricing.Report, error) {
	started := s.now()

	resolver, err := s.resolver(ctx)
	if err != nil {
		return pricing.Report{}, err
	}

	report, err := s.engine.Start(resolver, req.Request)
	s.observe("start", report.State, started)
	if err != nil {
		s.logger.InfoContext(ctx, "calculation start failed", "position_id", req.PositionID, "error", err)
		return report, err
	}
	return report, nil
}

// ValidateParams reports every problem with the request without pricing it.
func (s *Service) ValidateParams(ctx context.Context, req Request) (pricing.ParamsValidation, error) {
	started := s.now()

	resolver, err := s.resolver(ctx)
	if err != nil {
		return pricing.ParamsValidation{}, err
	}

	v := s.engine.ValidateParams(resolver, req.Request)
	s.observe("validate", v.Report.State, started)
	return v, nil
}

// Execute runs a calculation. A completed result is assigned an ID and stored;
// a calculation waiting for input is returned without being stored.
func (s *Service) Execute(ctx context.Context, req Request) (pricing.Outcome, error) {
	started := s.now()

	resolver, err := s.resolver(ctx)
	if err != nil {
		return pricing.Outcome{}, err
	}

	out, err := s.engine.Execute(resolver, req.Request)
	if err != nil {
		s.observe("execute", out.State, started)
		s.logger.InfoContext(ctx, "calculation failed", "position_id", req.PositionID, "error", err)
		return out, err
	}

	if out.Result != nil {
		out.Result.ID = s.newID()
		out.Result.PositionID = strings.TrimSpace(req.PositionID)
		if out.Result.PositionID == "" {
			out.Result.PositionID = out.Result.ID
		}
		if err := s.save(ctx, out.Result); err != nil {
			return pricing.Outcome{}, err
		}
	}

	s.observe("execute", out.State, started)
	s.logOutcome(ctx, "calculation executed", out)
	return out, nil
}

// Update re-runs a stored calculation with changes. The stored calculation is
// kept; a completed update is stored as a new calculation whose parent is id.
func (s *Service) Update(ctx context.Context, id string, ch pricing.Changes) (pricing.Outcome, error) {
	started := s.now()

	prev, err := s.repo.GetCalculation(ctx, id)
	if err != nil {
		return pricing.Outcome{}, err
	}

	// The category snapshot of prev is reused unless the category changes.
	var resolver *pricing.Resolver
	if ch.CategoryChanged(prev) {
		if resolver, err = s.resolver(ctx); err != nil {
			return pricing.Outcome{}, err
		}
	}

	out, err := s.engine.Update(resolver, prev, ch)
	if err != nil {
		s.observe("update", out.State, started)
		s.logger.InfoContext(ctx, "calculation update failed", "parent_id", prev.ID, "error", err)
		return out, err
	}

	if out.Result != nil {
		out.Result.ID = s.newID()
		out.Result.PositionID = prev.PositionID
		out.Result.ParentID = prev.ID
		if err := s.save(ctx, out.Result); err != nil {
			return pricing.Outcome{}, err
		}
	}

	s.observe("update", out.State, started)
	s.logOutcome(ctx, "calculation updated", out)
	return out, nil
}

// Get returns a stored calculation.
func (s *Service) Get(ctx context.Context, id string) (*pricing.CalculationResult, error) {
	return s.repo.GetCalculation(ctx, id)
}

// History lists the calculations of a position, newest first.
func (s *Service) History(ctx context.Context, positionID string) ([]store.CalculationSummary, error) {
	return s.repo.ListCalculations(ctx, positionID)
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, c pricing.Category) (pricing.Category, error) {
	if err := c.Validate(); err != nil {
		return pricing.Category{}, err
	}
	c.ID = 0

	created, err := s.repo.InsertCategory(ctx, c)
	if err != nil {
		return pricing.Category{}, err
	}
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "category created", "category_id", created.ID, "name", created.Name)
	return created, nil
}

// UpdateCategory validates and replaces a stored category. Calculations
// already stored keep the snapshot they were priced with.
func (s *Service) UpdateCategory(ctx context.Context, c pricing.Category) (pricing.Category, error) {
	if err := c.Validate(); err != nil {
		return pricing.Category{}, err
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return pricing.Category{}, err
	}
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "category updated", "category_id", c.ID, "name", c.Name)
	return s.repo.GetCategory(ctx, c.ID)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "category cache invalidation failed", "error", err)
	}
}

func (s *Service) save(ctx context.Context, res *pricing.CalculationResult) error {
	res.CreatedAt = s.now().UTC()
	if err := s.repo.SaveCalculation(ctx, res); err != nil {
		return fmt.Errorf("save calculation %s: %w", res.ID, err)
	}
	return nil
}

func (s *Service) observe(operation string, state pricing.State, started time.Time) {
	if state == "" {
		state = pricing.StateFailed
	}
	s.metrics.ObserveCalculation(operation, string(state), s.now().Sub(started))
}

func (s *Service) logOutcome(ctx context.Context, msg string, out pricing.Outcome) {
	attrs := []any{"state", out.State}
	if res := out.Result; res != nil {
		unavailable := make([]string, 0, len(res.Unavailable))
		for _, u := range res.Unavailable {
			unavailable = append(unavailable, string(u.Route))
		}
		s.metrics.ObserveRoutes(string(res.BestRoute), unavailable)
		attrs = append(attrs,
			"calculation_id", res.ID,
			"position_id", res.PositionID,
			"parent_id", res.ParentID,
			"best_route", res.BestRoute,
			"routes", len(res.Routes),
			"unavailable", unavailable,
		)
	} else {
		attrs = append(attrs, "reason", out.Reason)
	}
	s.logger.InfoContext(ctx, msg, attrs...)
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
