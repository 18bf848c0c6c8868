// Package blueprint resolves the extraction schema identifier used for
// invoice jobs: a get-or-create lookup cached in the shared parameter
// store and, optionally, a faster local cache in front of it.
package blueprint

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkwell-systems/invoice-pipeline/internal/cache"
	"github.com/inkwell-systems/invoice-pipeline/internal/engine"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
	"github.com/inkwell-systems/invoice-pipeline/internal/paramstore"
)

// StageLive is the only lifecycle stage consulted for lookups.
const StageLive = "LIVE"

//go:embed blueprints/invoices_blueprint.json
var invoicesSchema []byte

// Resolver performs the idempotent blueprint lookup. Concurrent calls
// before the first creation completes may create duplicates; acceptable
// for this low-frequency setup path, so no locking.
type Resolver struct {
	engine    engine.Client
	params    paramstore.Store
	cache     cache.Client
	cacheTTL  time.Duration
	paramName string
	logger    *observability.Logger
}

// NewResolver creates a Resolver. cache may be nil to skip the local
// cache layer; paramName keys the resolved ARN in the parameter store.
func NewResolver(eng engine.Client, params paramstore.Store, c cache.Client, cacheTTL time.Duration, paramName string, logger *observability.Logger) *Resolver {
	return &Resolver{
		engine:    eng,
		params:    params,
		cache:     c,
		cacheTTL:  cacheTTL,
		paramName: paramName,
		logger:    logger,
	}
}

// Resolve returns the blueprint ARN for name, creating the blueprint
// from the bundled definition if no LIVE blueprint matches.
//
// Matching is by substring containment against existing blueprint names,
// first match wins. This mirrors the engine-side convention; callers
// must supply names unlikely to substring-collide.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if r.cache != nil {
		if arn, err := r.cache.Get(ctx, cacheKey(name)); err == nil {
			return arn, nil
		}
	}

	if arn, err := r.params.Get(ctx, r.paramName); err == nil && arn != "" {
		r.remember(ctx, name, arn)
		return arn, nil
	} else if err != nil && !errors.Is(err, paramstore.ErrNotFound) {
		return "", fmt.Errorf("read blueprint parameter: %w", err)
	}

	arn, created, err := r.getOrCreate(ctx, name)
	if err != nil {
		return "", err
	}

	if err := r.params.Put(ctx, r.paramName, arn); err != nil {
		return "", fmt.Errorf("store blueprint parameter: %w", err)
	}
	r.remember(ctx, name, arn)

	r.logger.WithContext(ctx).Info().
		Str("blueprint_name", name).
		Str("blueprint_arn", arn).
		Bool("created", created).
		Msg("Resolved blueprint")

	return arn, nil
}

// getOrCreate scans LIVE blueprints for a name match, creating one from
// the bundled schema when none exists.
func (r *Resolver) getOrCreate(ctx context.Context, name string) (arn string, created bool, err error) {
	blueprints, err := r.engine.ListBlueprints(ctx, StageLive)
	if err != nil {
		return "", false, fmt.Errorf("list blueprints: %w", err)
	}

	for _, b := range blueprints {
		if strings.Contains(b.Name, name) {
			return b.ARN, false, nil
		}
	}

	arn, err = r.engine.CreateBlueprint(ctx, name, invoicesSchema)
	if err != nil {
		return "", false, err
	}
	return arn, true, nil
}

func (r *Resolver) remember(ctx context.Context, name, arn string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(name), arn, r.cacheTTL); err != nil {
		r.logger.WithContext(ctx).Warn().Err(err).Msg("Blueprint cache write failed")
	}
}

func cacheKey(name string) string {
	return "blueprint:" + name
}
