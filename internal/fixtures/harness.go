// Package fixtures creates and removes test data directly in the rococo
// service databases. Each service database is written in its own unit of
// work; operations that span databases run those units in sequence and undo
// the completed ones when a later step fails.
package fixtures

import (
	"context"
	"errors"
	"fmt"

	jujuerrors "github.com/juju/errors"

	"rococodb/internal/blob"
	"rococodb/internal/config"
	"rococodb/internal/data/dao"
	"rococodb/internal/data/repository"
	"rococodb/internal/database"
	"rococodb/internal/infra/persistence"
	"rococodb/internal/observability"
	"rococodb/internal/schema"
	"rococodb/pkg/domain"
)

// ErrNoPhotoStore is returned by Photo when the harness has no photo loader.
var ErrNoPhotoStore = errors.New("fixtures: no photo store configured")

// Harness owns a connection registry and hands out repositories bound to the
// configured service databases.
type Harness struct {
	cfg      *config.Config
	registry *database.Registry
	logger   observability.Logger
	metrics  observability.MetricsRecorder
	tracer   observability.Tracer
	photos   *PhotoLoader
	encoder  dao.PasswordEncoder
}

// Option configures a Harness.
type Option func(*Harness)

// WithRegistry makes the harness use reg instead of building its own. The
// harness still closes it on Close.
func WithRegistry(reg *database.Registry) Option {
	return func(h *Harness) { h.registry = reg }
}

// WithLogger sets the harness logger. It is also handed to the registry the
// harness builds.
func WithLogger(l observability.Logger) Option {
	return func(h *Harness) { h.logger = observability.OrNop(l) }
}

// WithMetricsRecorder is handed to the registry the harness builds.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(h *Harness) { h.metrics = m }
}

// WithTracer is handed to the registry the harness builds.
func WithTracer(tr observability.Tracer) Option {
	return func(h *Harness) { h.tracer = tr }
}

// WithPhotoLoader sets the source of original photos.
func WithPhotoLoader(p *PhotoLoader) Option {
	return func(h *Harness) { h.photos = p }
}

// WithPasswordEncoder sets the encoder used for auth users.
func WithPasswordEncoder(enc dao.PasswordEncoder) Option {
	return func(h *Harness) { h.encoder = enc }
}

// New builds a harness for cfg. Unless WithRegistry is given, the registry
// dispatches on the endpoint scheme and takes credentials and pool bounds
// from cfg.
func New(cfg *config.Config, opts ...Option) *Harness {
	h := &Harness{cfg: cfg, logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(h)
	}
	if h.registry == nil {
		h.registry = database.NewRegistry(persistence.NewOpener(), cfg,
			database.WithPoolOptions(cfg.PoolOptions()),
			database.WithLogger(h.logger),
			database.WithMetricsRecorder(h.metrics),
			database.WithTracer(h.tracer),
			database.WithStatementLogging(cfg.Database.LogStatements),
		)
	}
	return h
}

// Open builds a harness whose photo loader reads from the blob store
// described by cfg.Photos.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Harness, error) {
	store, err := blob.Open(ctx, cfg.Photos.Blob)
	if err != nil {
		return nil, fmt.Errorf("open photo store: %w", err)
	}
	opts = append([]Option{WithPhotoLoader(NewPhotoLoader(store, cfg.Photos.Prefix))}, opts...)
	return New(cfg, opts...), nil
}

// Config returns the configuration the harness was built with.
func (h *Harness) Config() *config.Config { return h.cfg }

// Registry returns the underlying connection registry.
func (h *Harness) Registry() *database.Registry { return h.registry }

// Template returns a unit-of-work template on the database of service.
func (h *Harness) Template(ctx context.Context, service domain.Service) (database.TxTemplate, error) {
	src, err := h.registry.SourceFor(ctx, h.cfg.Endpoint(service))
	if err != nil {
		return database.TxTemplate{}, fmt.Errorf("open %s database: %w", service, err)
	}
	return database.NewTxTemplate(src), nil
}

func repo[R any](ctx context.Context, h *Harness, service domain.Service, build func(database.TxTemplate) R) (R, error) {
	tpl, err := h.Template(ctx, service)
	if err != nil {
		var zero R
		return zero, err
	}
	return build(tpl), nil
}

func (h *Harness) Artists(ctx context.Context) (*repository.ArtistRepository, error) {
	return repo(ctx, h, domain.ServiceArtists, repository.NewArtistRepository)
}

func (h *Harness) Museums(ctx context.Context) (*repository.MuseumRepository, error) {
	return repo(ctx, h, domain.ServiceMuseums, repository.NewMuseumRepository)
}

func (h *Harness) Paintings(ctx context.Context) (*repository.PaintingRepository, error) {
	return repo(ctx, h, domain.ServicePaintings, repository.NewPaintingRepository)
}

func (h *Harness) Countries(ctx context.Context) (*repository.CountryRepository, error) {
	return repo(ctx, h, domain.ServiceCountries, repository.NewCountryRepository)
}

func (h *Harness) Users(ctx context.Context) (*repository.UserRepository, error) {
	return repo(ctx, h, domain.ServiceUsers, repository.NewUserRepository)
}

// AuthUsers returns the auth repository, hashing with the harness encoder.
func (h *Harness) AuthUsers(ctx context.Context) (*repository.AuthUserRepository, error) {
	r, err := repo(ctx, h, domain.ServiceAuth, repository.NewAuthUserRepository)
	if err != nil {
		return nil, err
	}
	return r.WithEncoder(h.encoder), nil
}

func (h *Harness) Files(ctx context.Context) (*repository.FilesRepository, error) {
	return repo(ctx, h, domain.ServiceFiles, repository.NewFilesRepository)
}

// Bootstrap creates the tables of every service database. Statements are
// idempotent.
func (h *Harness) Bootstrap(ctx context.Context) error {
	for _, service := range domain.Services() {
		tpl, err := h.Template(ctx, service)
		if err != nil {
			return err
		}
		src := tpl.Source()
		dialect, err := schema.DialectFor(src.Endpoint())
		if err != nil {
			return err
		}
		if err := schema.Apply(ctx, src.DB(), dialect, service); err != nil {
			return fmt.Errorf("bootstrap %s: %w", service, err)
		}
		h.logger.Info("schema applied", "service", service, "endpoint", src.Endpoint().Redacted())
	}
	return nil
}

// Photo loads the named original photo as a data URL.
func (h *Harness) Photo(ctx context.Context, name string) (string, error) {
	if h.photos == nil {
		return "", ErrNoPhotoStore
	}
	return h.photos.Load(ctx, name)
}

// PhotoNames lists the original photos the loader can read.
func (h *Harness) PhotoNames(ctx context.Context) ([]string, error) {
	if h.photos == nil {
		return nil, ErrNoPhotoStore
	}
	return h.photos.Names(ctx)
}

// AfterEach releases the connections the worker carried by ctx holds.
func (h *Harness) AfterEach(ctx context.Context) error {
	return h.registry.CloseWorker(ctx)
}

// Close clears all fixture data when cleanup is configured, then releases
// every cached connection and closes every pool.
func (h *Harness) Close() error {
	var errs []error
	if h.cfg.Database.Cleanup {
		if err := h.ClearAll(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("cleanup: %w", err))
		}
	}
	if err := h.registry.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	if err := h.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// undoStack collects compensations for completed per-database steps.
type undoStack struct {
	logger observability.Logger
	steps  []undoStep
}

type undoStep struct {
	name string
	fn   func(context.Context) error
}

func (u *undoStack) push(name string, fn func(context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

// unwind runs the compensations newest first. Failures are logged and the
// remaining steps still run.
func (u *undoStack) unwind(ctx context.Context) {
	for i := len(u.steps) - 1; i >= 0; i-- {
		step := u.steps[i]
		if err := step.fn(ctx); err != nil {
			u.logger.Warn("undo fixture step failed", "step", step.name, "error", err)
		}
	}
	u.steps = nil
}

func notFound(kind string, id fmt.Stringer) error {
	return jujuerrors.NotFoundf("%s %s", kind, id)
}
