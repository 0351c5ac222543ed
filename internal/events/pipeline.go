package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mbertozzi/storefront/internal/metrics"
	"github.com/mbertozzi/storefront/internal/tenancy"
	"github.com/mbertozzi/storefront/pkg/models"
)

// Op identifies what happened to an entity.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// KindProduct is the only entity kind wired today. The dispatcher is keyed by
// kind so new entities register their own reactions without touching this
// package.
const KindProduct = "product"

// Mutation describes one committed write. Product carries the row as written
// for creates and updates; deletes carry only the ID.
type Mutation struct {
	Tenant  tenancy.Context
	Kind    string
	Op      Op
	ID      uuid.UUID
	Product *models.Product
}

// Reaction is one side effect run after a mutation commits. Reactions must be
// safe to run concurrently with each other.
type Reaction struct {
	Name string
	Fn   func(ctx context.Context, m Mutation) error
}

// Pipeline runs registered reactions after every committed write. Reactions
// run concurrently, each failure is logged and counted but never propagated:
// the database commit already happened and the caller's response must not
// depend on cache, index, or notification health.
type Pipeline struct {
	reactions map[string][]Reaction
	metrics   *metrics.Metrics
}

func NewPipeline(m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		reactions: make(map[string][]Reaction),
		metrics:   m,
	}
}

// Register appends reactions for an entity kind. Not safe to call after
// Dispatch is in use; wire everything at startup.
func (p *Pipeline) Register(kind string, reactions ...Reaction) {
	p.reactions[kind] = append(p.reactions[kind], reactions...)
}

// Dispatch runs every reaction registered for the mutation's kind and waits
// for all of them. It always returns once the last reaction finishes,
// regardless of individual failures.
func (p *Pipeline) Dispatch(ctx context.Context, m Mutation) {
	reactions := p.reactions[m.Kind]
	if len(reactions) == 0 {
		return
	}

	var g errgroup.Group
	for _, r := range reactions {
		g.Go(func() error {
			if err := r.Fn(ctx, m); err != nil {
				p.metrics.PipelineFailures.WithLabelValues(r.Name).Inc()
				slog.Error("pipeline step failed",
					"step", r.Name,
					"kind", m.Kind,
					"op", string(m.Op),
					"entity_id", m.ID,
					"schema", m.Tenant.Schema,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}
