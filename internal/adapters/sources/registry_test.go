package sources_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorvalue/vehicle-valuation/internal/adapters/sources"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

type fakeSource struct {
	name     string
	priority int
}

func (f *fakeSource) FetchListings(ctx context.Context, criteria entities.SearchCriteria) ([]entities.Listing, error) {
	return nil, nil
}

func (f *fakeSource) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeSource) Name() string                         { return f.name }
func (f *fakeSource) Priority() int                        { return f.priority }
func (f *fakeSource) RequiresHeavyRuntime() bool           { return false }

func TestRegistryRegisterIdempotent(t *testing.T) {
	registry := sources.NewRegistry()

	first := &fakeSource{name: "autoscout", priority: 2}
	registry.Register(first)
	registry.Register(&fakeSource{name: "autoscout", priority: 9})

	require.Equal(t, 1, registry.Len())
	// The first registration wins
	assert.Equal(t, 2, registry.ListByPriority()[0].Priority())
}

func TestRegistryListByPriority(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeSource{name: "gamma", priority: 3})
	registry.Register(&fakeSource{name: "beta", priority: 2})
	registry.Register(&fakeSource{name: "alpha", priority: 3})

	list := registry.ListByPriority()

	require.Len(t, list, 3)
	assert.Equal(t, "beta", list[0].Name())
	// Equal priorities order by name
	assert.Equal(t, "alpha", list[1].Name())
	assert.Equal(t, "gamma", list[2].Name())
}

func TestRegistryEmpty(t *testing.T) {
	registry := sources.NewRegistry()
	assert.Zero(t, registry.Len())
	assert.Empty(t, registry.ListByPriority())
}
