package blueprint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-systems/invoice-pipeline/internal/cache"
	"github.com/inkwell-systems/invoice-pipeline/internal/engine"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
	"github.com/inkwell-systems/invoice-pipeline/internal/paramstore"
)

const paramName = "/invoice-pipeline/invoices_blueprint_arn"

func newTestResolver(eng engine.Client, c cache.Client) (*Resolver, paramstore.Store) {
	params := paramstore.NewMemoryStore()
	return NewResolver(eng, params, c, time.Hour, paramName, observability.Nop()), params
}

func TestResolveCreatesWhenAbsent(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewFakeClient()
	r, params := newTestResolver(eng, nil)

	arn, err := r.Resolve(ctx, "invoices")
	require.NoError(t, err)
	assert.NotEmpty(t, arn)
	assert.Equal(t, 1, eng.Created)

	// The resolved ARN lands in the parameter store.
	stored, err := params.Get(ctx, paramName)
	require.NoError(t, err)
	assert.Equal(t, arn, stored)
}

func TestResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewFakeClient()
	r, _ := newTestResolver(eng, nil)

	first, err := r.Resolve(ctx, "invoices")
	require.NoError(t, err)

	second, err := r.Resolve(ctx, "invoices")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, eng.Created, "second resolve must not create another blueprint")
}

func TestResolveMatchesBySubstring(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewFakeClient()
	eng.AddBlueprint("acme-invoices-v2", "arn:existing")
	r, _ := newTestResolver(eng, nil)

	arn, err := r.Resolve(ctx, "invoices")
	require.NoError(t, err)

	assert.Equal(t, "arn:existing", arn)
	assert.Equal(t, 0, eng.Created)
}

func TestResolveFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewFakeClient()
	eng.AddBlueprint("invoices-old", "arn:first")
	eng.AddBlueprint("invoices-new", "arn:second")
	r, _ := newTestResolver(eng, nil)

	arn, err := r.Resolve(ctx, "invoices")
	require.NoError(t, err)
	assert.Equal(t, "arn:first", arn)
}

func TestResolvePrefersParameterStore(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewFakeClient()
	r, params := newTestResolver(eng, nil)

	require.NoError(t, params.Put(ctx, paramName, "arn:from-params"))

	arn, err := r.Resolve(ctx, "invoices")
	require.NoError(t, err)

	assert.Equal(t, "arn:from-params", arn)
	assert.Equal(t, 0, eng.Created)
}

func TestResolveUsesCache(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewFakeClient()
	c := cache.NewMemoryClient()
	r, params := newTestResolver(eng, c)

	arn, err := r.Resolve(ctx, "invoices")
	require.NoError(t, err)

	// Wipe the parameter store; a cached resolve must not notice.
	require.NoError(t, params.Put(ctx, paramName, ""))

	cached, err := r.Resolve(ctx, "invoices")
	require.NoError(t, err)
	assert.Equal(t, arn, cached)
}
