package services

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"sponsor-backend/internal/extractor"
	"sponsor-backend/internal/models"
	"sponsor-backend/internal/repository"
)

type fakeFactoryRepo struct {
	rows map[string]*models.FactoryEntry
}

func newFakeFactoryRepo() *fakeFactoryRepo {
	return &fakeFactoryRepo{rows: map[string]*models.FactoryEntry{}}
}

func (f *fakeFactoryRepo) Create(_ context.Context, entry *models.FactoryEntry) error {
	if _, exists := f.rows[entry.Factory]; exists {
		return repository.ErrDuplicateFactory
	}
	f.rows[entry.Factory] = entry
	return nil
}

func (f *fakeFactoryRepo) Delete(_ context.Context, factory string) error {
	delete(f.rows, factory)
	return nil
}

func (f *fakeFactoryRepo) GetByFactory(_ context.Context, factory string) (*models.FactoryEntry, error) {
	return f.rows[factory], nil
}

func (f *fakeFactoryRepo) List(_ context.Context) ([]*models.FactoryEntry, error) {
	out := make([]*models.FactoryEntry, 0, len(f.rows))
	for _, e := range f.rows {
		out = append(out, e)
	}
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j].Position < out[i].Position {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeFactoryRepo) UpdatePosition(_ context.Context, factory string, position int) error {
	if e, exists := f.rows[factory]; exists {
		e.Position = position
	}
	return nil
}

func (f *fakeFactoryRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

var (
	poolAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	factoryA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	factoryB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	factoryC = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func TestRegistryAddAndResolve(t *testing.T) {
	reg := NewRegistryService(newFakeFactoryRepo(), poolAddr)
	ctx := context.Background()

	require.NoError(t, reg.Add(ctx, factoryA, extractor.VariantSimpleAccount, "simple"))

	ex, err := reg.ExtractorFor(factoryA)
	require.NoError(t, err)
	require.Equal(t, extractor.VariantSimpleAccount, ex.Variant())
	require.True(t, reg.IsSupported(factoryA))
	require.False(t, reg.IsSupported(factoryB))
}

func TestRegistryRejectsZeroAndDuplicate(t *testing.T) {
	reg := NewRegistryService(newFakeFactoryRepo(), poolAddr)
	ctx := context.Background()

	require.ErrorIs(t, reg.Add(ctx, common.Address{}, extractor.VariantSimpleAccount, ""), ErrZeroFactory)
	require.ErrorIs(t, reg.Add(ctx, factoryA, "", ""), ErrZeroExtractor)
	require.ErrorIs(t, reg.Add(ctx, factoryA, "no-such-variant", ""), ErrUnknownVariant)

	require.NoError(t, reg.Add(ctx, factoryA, extractor.VariantSimpleAccount, ""))
	require.ErrorIs(t, reg.Add(ctx, factoryA, extractor.VariantKernelAccount, ""), repository.ErrDuplicateFactory)
}

func TestRegistryRemoveSwapAndPop(t *testing.T) {
	reg := NewRegistryService(newFakeFactoryRepo(), poolAddr)
	ctx := context.Background()

	require.NoError(t, reg.Add(ctx, factoryA, extractor.VariantSimpleAccount, "a"))
	require.NoError(t, reg.Add(ctx, factoryB, extractor.VariantKernelAccount, "b"))
	require.NoError(t, reg.Add(ctx, factoryC, extractor.VariantSimpleAccount, "c"))

	require.NoError(t, reg.Remove(ctx, factoryA))

	list := reg.List()
	require.Len(t, list, 2)
	// last entry moved into the freed slot
	require.Equal(t, factoryC.Hex(), list[0].Factory)
	require.Equal(t, 0, list[0].Position)
	require.Equal(t, factoryB.Hex(), list[1].Factory)

	require.False(t, reg.IsSupported(factoryA))
	_, err := reg.ExtractorFor(factoryA)
	require.ErrorIs(t, err, ErrUnknownFactory)

	// removing an unlisted factory is refused
	require.ErrorIs(t, reg.Remove(ctx, factoryA), ErrUnknownFactory)
	require.ErrorIs(t, reg.Remove(ctx, common.Address{}), ErrZeroFactory)
}

func TestRegistryLoadRestoresOrder(t *testing.T) {
	repo := newFakeFactoryRepo()
	reg := NewRegistryService(repo, poolAddr)
	ctx := context.Background()

	require.NoError(t, reg.Add(ctx, factoryA, extractor.VariantSimpleAccount, ""))
	require.NoError(t, reg.Add(ctx, factoryB, extractor.VariantKernelAccount, ""))

	reloaded := NewRegistryService(repo, poolAddr)
	require.NoError(t, reloaded.Load(ctx))
	list := reloaded.List()
	require.Len(t, list, 2)
	require.Equal(t, factoryA.Hex(), list[0].Factory)
	require.Equal(t, extractor.VariantKernelAccount, list[1].Variant)
}
