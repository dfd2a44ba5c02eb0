// Package service implements the registration reconciler: the create-vs-merge
// decision made when a submission is persisted, plus the admin operations over
// the config and campus documents.
//
// Every mutation follows the same discipline as the store it fronts: read the
// full collection, mutate in memory, write the full collection back. Two
// concurrent writers race and the last one wins; given tens of low-frequency
// submissions this is accepted and must not be papered over with locking the
// backend cannot honor anyway.
package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"outing/internal/audit"
	"outing/internal/platform/config"
	"outing/internal/platform/metrics"
	"outing/internal/registration/aggregate"
	"outing/internal/registration/gate"
	"outing/internal/registration/models"
	"outing/internal/registration/store/document"
	dErrors "outing/pkg/domain-errors"
	"outing/pkg/platform/sentinel"
	"outing/pkg/requestcontext"
)

var tracer = otel.Tracer("outing/internal/registration/service")

// Service owns correctness of the merge decision. The store owns durability;
// the client-side cache owns only a non-authoritative hint.
type Service struct {
	store    document.Store
	recorder audit.Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger

	editPolicy      config.EditPolicy
	capacityMode    config.CapacityMode
	adminPassphrase string
	defaultDeadline time.Time
	defaultCapacity int
}

// Option configures the Service.
type Option func(*Service)

func WithRecorder(r audit.Emitter) Option {
	return func(s *Service) { s.recorder = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEditPolicy(p config.EditPolicy) Option {
	return func(s *Service) { s.editPolicy = p }
}

func WithCapacityMode(m config.CapacityMode) Option {
	return func(s *Service) { s.capacityMode = m }
}

func WithAdminPassphrase(p string) Option {
	return func(s *Service) { s.adminPassphrase = p }
}

// WithConfigDefaults sets the AppConfig served before an admin saves one.
func WithConfigDefaults(deadline time.Time, capacity int) Option {
	return func(s *Service) {
		s.defaultDeadline = deadline
		s.defaultCapacity = capacity
	}
}

func New(store document.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:           store,
		logger:          logger,
		editPolicy:      config.EditPolicyUnlimited,
		capacityMode:    config.CapacityModeAdvisory,
		defaultDeadline: time.Date(2025, time.December, 26, 18, 0, 0, 0, time.FixedZone("CST", 8*3600)),
		defaultCapacity: 28,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registrations fetches the authoritative collection. An absent document reads
// as an empty collection, never an error.
func (s *Service) Registrations(ctx context.Context) ([]models.Registration, error) {
	doc, err := s.store.Get(ctx, document.KeyRegistrations)
	if errors.Is(err, sentinel.ErrNotFound) {
		return []models.Registration{}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "registration store unavailable")
	}

	var regs []models.Registration
	if err := json.Unmarshal(doc, &regs); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registration document corrupt")
	}
	if regs == nil {
		regs = []models.Registration{}
	}
	return regs, nil
}

// Submit runs the name-match reconciliation: without any identity token from
// the submitter, decide between create and merge-update, persist the full
// collection, and return the resulting record.
//
// Matching by name instead of a client identity is deliberate: it lets a user
// revise their signup from any device without a login, at the cost of two
// same-named people silently overwriting each other.
func (s *Service) Submit(ctx context.Context, in models.Input) (models.Registration, error) {
	ctx, span := tracer.Start(ctx, "registration.submit")
	defer span.End()

	name := in.NormalizedName()
	if name == "" {
		return models.Registration{}, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}

	regs, err := s.Registrations(ctx)
	if err != nil {
		return models.Registration{}, err
	}

	idx, found := models.FindByNormalizedName(regs, name)

	needed := in.Headcount()
	if found {
		// An edit frees the seats the old record held.
		needed -= regs[idx].Headcount()
	}
	if err := s.checkAdmission(ctx, regs, needed); err != nil {
		return models.Registration{}, err
	}

	now := requestcontext.Now(ctx)
	if found {
		existing := regs[idx]
		details := models.Diff(existing, in)

		updated := existing
		in.Apply(&updated)
		updated.HasEdited = true
		updated.Timestamp = now.UnixMilli()
		regs[idx] = updated

		if err := s.saveRegistrations(ctx, regs); err != nil {
			return models.Registration{}, err
		}

		span.SetAttributes(attribute.String("reconcile.outcome", "update"))
		s.emit(ctx, audit.ActionUpdate, updated.Name, details)
		if s.metrics != nil {
			s.metrics.RegistrationsUpdated.Inc()
		}
		s.logger.InfoContext(ctx, "registration merged",
			"id", updated.ID,
			"details", details,
		)
		return updated, nil
	}

	created := models.Registration{
		ID:        uuid.NewString(),
		Timestamp: now.UnixMilli(),
	}
	in.Apply(&created)
	regs = append(regs, created)

	if err := s.saveRegistrations(ctx, regs); err != nil {
		return models.Registration{}, err
	}

	span.SetAttributes(attribute.String("reconcile.outcome", "create"))
	s.emit(ctx, audit.ActionCreate, created.Name, "")
	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "registration created", "id", created.ID)
	return created, nil
}

// Update is the explicit-id path, used when the caller already holds its
// own-registration pointer. Locates by id; the configured edit policy decides
// whether a second revision is allowed.
func (s *Service) Update(ctx context.Context, id string, in models.Input) (models.Registration, error) {
	ctx, span := tracer.Start(ctx, "registration.update",
		trace.WithAttributes(attribute.String("registration.id", id)))
	defer span.End()

	if in.NormalizedName() == "" {
		return models.Registration{}, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}

	regs, err := s.Registrations(ctx)
	if err != nil {
		return models.Registration{}, err
	}

	idx, found := models.FindByID(regs, id)
	if !found {
		return models.Registration{}, dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	existing := regs[idx]

	if s.editPolicy == config.EditPolicySingle && existing.HasEdited {
		return models.Registration{}, dErrors.New(dErrors.CodeConflict, "registration already revised once")
	}

	if err := s.checkAdmission(ctx, regs, in.Headcount()-existing.Headcount()); err != nil {
		return models.Registration{}, err
	}

	details := models.Diff(existing, in)
	updated := existing
	in.Apply(&updated)
	updated.HasEdited = true
	updated.Timestamp = requestcontext.Now(ctx).UnixMilli()
	regs[idx] = updated

	if err := s.saveRegistrations(ctx, regs); err != nil {
		return models.Registration{}, err
	}

	s.emit(ctx, audit.ActionUpdate, updated.Name, details)
	if s.metrics != nil {
		s.metrics.RegistrationsUpdated.Inc()
	}
	s.logger.InfoContext(ctx, "registration updated", "id", updated.ID, "details", details)
	return updated, nil
}

// Clear wipes the registration collection after verifying the admin
// passphrase. The config and campus documents are untouched.
func (s *Service) Clear(ctx context.Context, passphrase string) error {
	ctx, span := tracer.Start(ctx, "registration.clear")
	defer span.End()

	if subtle.ConstantTimeCompare([]byte(passphrase), []byte(s.adminPassphrase)) != 1 {
		return dErrors.New(dErrors.CodeForbidden, "invalid admin passphrase")
	}

	if err := s.store.Delete(ctx, document.KeyRegistrations); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "clear not confirmed by store")
	}

	s.emit(ctx, audit.ActionClear, "admin", "registration collection cleared")
	s.logger.InfoContext(ctx, "registration collection cleared")
	return nil
}

// Config returns the settings document, defaulted when absent. Read failures
// degrade to the defaults so the public form never hard-fails on first load.
func (s *Service) Config(ctx context.Context) (models.AppConfig, error) {
	fallback := models.DefaultAppConfig(s.defaultDeadline, s.defaultCapacity)

	doc, err := s.store.Get(ctx, document.KeyAppConfig)
	if errors.Is(err, sentinel.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "config read degraded to defaults", "error", err)
		return fallback, nil
	}

	var cfg models.AppConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		s.logger.WarnContext(ctx, "config document corrupt, serving defaults", "error", err)
		return fallback, nil
	}
	return cfg, nil
}

// SetConfig overwrites the settings document wholesale. There is no per-field
// merge; last writer wins.
func (s *Service) SetConfig(ctx context.Context, cfg models.AppConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode config")
	}
	if err := s.store.Set(ctx, document.KeyAppConfig, doc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "config write not confirmed by store")
	}
	return nil
}

// Campus returns the campus-guide document as-is; the service never interprets
// its contents. Absent or unreadable reads degrade to an empty array.
func (s *Service) Campus(ctx context.Context) (json.RawMessage, error) {
	doc, err := s.store.Get(ctx, document.KeyCampusGuide)
	if errors.Is(err, sentinel.ErrNotFound) {
		return json.RawMessage(`[]`), nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "campus read degraded to empty", "error", err)
		return json.RawMessage(`[]`), nil
	}
	return doc, nil
}

// SetCampus overwrites the campus-guide document wholesale.
func (s *Service) SetCampus(ctx context.Context, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return dErrors.New(dErrors.CodeBadRequest, "campus document is not valid JSON")
	}
	if err := s.store.Set(ctx, document.KeyCampusGuide, doc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "campus write not confirmed by store")
	}
	return nil
}

// Headcount computes the current totals for the progress bar and dashboard.
func (s *Service) Headcount(ctx context.Context) (aggregate.Breakdown, error) {
	regs, err := s.Registrations(ctx)
	if err != nil {
		return aggregate.Breakdown{}, err
	}
	return aggregate.Compute(regs), nil
}

func (s *Service) checkAdmission(ctx context.Context, regs []models.Registration, neededSeats int) error {
	cfg, err := s.Config(ctx)
	if err != nil {
		return err
	}

	decision := gate.Check(cfg, aggregate.TotalHeadcount(regs), neededSeats, requestcontext.Now(ctx), s.capacityMode)
	if decision.Allowed {
		return nil
	}

	s.metrics.IncrementAdmissionDenied(string(decision.Reason))
	switch decision.Reason {
	case gate.ReasonDeadlinePassed:
		return dErrors.New(dErrors.CodeForbidden, "registration deadline has passed")
	case gate.ReasonPaused:
		return dErrors.New(dErrors.CodeForbidden, "registration is paused")
	default:
		return dErrors.New(dErrors.CodeConflict, "event is full")
	}
}

func (s *Service) saveRegistrations(ctx context.Context, regs []models.Registration) error {
	doc, err := json.Marshal(regs)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode registrations")
	}
	if err := s.store.Set(ctx, document.KeyRegistrations, doc); err != nil {
		// The caller keeps its optimistic state but must not claim success.
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "submission not confirmed by store")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, userName, details string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Emit(ctx, audit.Event{
		UserName:  userName,
		Action:    action,
		Details:   details,
		Timestamp: requestcontext.Now(ctx),
	})
}
