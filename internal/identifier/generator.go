// Package identifier generates short numeric identifiers for student and staff
// records. The digit width starts small and widens only once every identifier
// of the current width is taken.
package identifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/coaching-center-api/internal/observability"
)

// Kind selects the identifier column an ID belongs to.
type Kind string

const (
	KindStudent Kind = "student"
	KindStaff   Kind = "staff"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindStudent || k == KindStaff
}

const (
	// DefaultInitialWidth is the digit count of the first identifiers handed out.
	DefaultInitialWidth = 8
	// DefaultMaxAttempts bounds the draws made by a single Generate call, across all widths.
	DefaultMaxAttempts = 100
	// MaxWidth keeps every identifier representable as an int64.
	MaxWidth = 18
)

// ErrUnknownKind is returned for kinds other than student and staff.
var ErrUnknownKind = errors.New("unknown identifier kind")

// Store answers uniqueness questions about persisted identifiers. The store's
// unique constraint remains the authoritative guard against duplicates.
type Store interface {
	Exists(ctx context.Context, kind Kind, id string) (bool, error)
	CountWidth(ctx context.Context, kind Kind, width int) (int64, error)
}

// Source draws uniform integers in [0, n).
type Source interface {
	Int64N(n int64) int64
}

type globalSource struct{}

func (globalSource) Int64N(n int64) int64 {
	return rand.Int64N(n)
}

// State is the width a caller last generated at. It is passed into Generate
// and the updated value returned.
type State struct {
	Width int
}

// Config tunes the generator.
type Config struct {
	InitialWidth int
	MaxAttempts  int
}

func (c Config) withDefaults() Config {
	if c.InitialWidth <= 0 {
		c.InitialWidth = DefaultInitialWidth
	}
	if c.InitialWidth > MaxWidth {
		c.InitialWidth = MaxWidth
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Option customises a Generator.
type Option func(*Generator)

// WithSource replaces the random source, mostly for tests.
func WithSource(source Source) Option {
	return func(g *Generator) {
		if source != nil {
			g.source = source
		}
	}
}

// Generator produces collision-free identifiers.
type Generator struct {
	store  Store
	source Source
	cfg    Config
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewGenerator constructs a Generator backed by store.
func NewGenerator(store Store, cfg Config, logger zerolog.Logger, opts ...Option) *Generator {
	g := &Generator{
		store:  store,
		source: globalSource{},
		cfg:    cfg.withDefaults(),
		logger: logger.With().Str("component", "identifier_generator").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/coaching-center-api/internal/identifier"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the first identifier of kind not yet present in the store.
// The returned State carries the width the identifier was drawn at; it is
// never lower than the width passed in. An *ExhaustionError is returned when
// the attempt budget runs out.
func (g *Generator) Generate(ctx context.Context, kind Kind, state State) (string, State, error) {
	if !kind.Valid() {
		return "", state, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	ctx, span := g.tracer.Start(ctx, "identifier.generate", trace.WithAttributes(
		attribute.String("identifier.kind", string(kind)),
	))
	defer span.End()

	width := state.Width
	if width < g.cfg.InitialWidth {
		width = g.cfg.InitialWidth
	}

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		observability.IdentifierAttempts().WithLabelValues(string(kind)).Inc()

		id := g.draw(width)
		exists, err := g.store.Exists(ctx, kind, id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "uniqueness check failed")
			return "", State{Width: width}, fmt.Errorf("check %s identifier: %w", kind, err)
		}
		if !exists {
			span.SetAttributes(
				attribute.Int("identifier.width", width),
				attribute.Int("identifier.attempts", attempt),
			)
			return id, State{Width: width}, nil
		}

		observability.IdentifierCollisions().WithLabelValues(string(kind)).Inc()
		g.logger.Debug().Str("kind", string(kind)).Str("id", id).Int("attempt", attempt).Msg("identifier collision")

		if width >= MaxWidth {
			continue
		}
		used, err := g.store.CountWidth(ctx, kind, width)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "occupancy count failed")
			return "", State{Width: width}, fmt.Errorf("count %s identifiers: %w", kind, err)
		}
		if used >= Capacity(width) {
			width++
			observability.IdentifierEscalations().WithLabelValues(string(kind)).Inc()
			g.logger.Info().Str("kind", string(kind)).Int("width", width).Msg("identifier width escalated")
		}
	}

	err := &ExhaustionError{Kind: kind, Attempts: g.cfg.MaxAttempts, Width: width}
	observability.IdentifierExhaustions().WithLabelValues(string(kind)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "attempt budget exhausted")
	g.logger.Error().Str("kind", string(kind)).Int("attempts", g.cfg.MaxAttempts).Int("width", width).Msg("failed to generate unique identifier")
	return "", State{Width: width}, err
}

// Next generates an identifier starting from the width recorded in tracker and
// records the resulting width back into it.
func (g *Generator) Next(ctx context.Context, kind Kind, tracker *Tracker) (string, error) {
	id, state, err := g.Generate(ctx, kind, tracker.Current(kind))
	tracker.Observe(kind, state)
	return id, err
}

func (g *Generator) draw(width int) string {
	low := pow10(width - 1)
	return strconv.FormatInt(low+g.source.Int64N(Capacity(width)), 10)
}

// Capacity is the number of distinct identifiers with exactly width digits.
func Capacity(width int) int64 {
	return 9 * pow10(width-1)
}

func pow10(exp int) int64 {
	result := int64(1)
	for i := 0; i < exp; i++ {
		result *= 10
	}
	return result
}
