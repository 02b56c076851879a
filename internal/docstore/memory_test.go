package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ok, err := s.Exists(ctx, "releases/4.16/statebox/4.16.9.yaml")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = s.Read(ctx, "releases/4.16/statebox/4.16.9.yaml")
	require.True(t, IsNotFound(err))

	v1, err := s.Create(ctx, "releases/4.16/statebox/4.16.9.yaml", "a: 1\n")
	require.NoError(t, err)
	require.False(t, v1.Zero())

	_, err = s.Create(ctx, "releases/4.16/statebox/4.16.9.yaml", "a: 2\n")
	require.Error(t, err)

	content, v, err := s.Read(ctx, "releases/4.16/statebox/4.16.9.yaml")
	require.NoError(t, err)
	require.Equal(t, "a: 1\n", content)
	require.Equal(t, v1, v)

	v2, err := s.Write(ctx, "releases/4.16/statebox/4.16.9.yaml", "a: 2\n", v1)
	require.NoError(t, err)
	require.NotEqual(t, v1, v2)
}

func TestMemoryStoreConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v1, err := s.Create(ctx, "doc.yaml", "x: 1\n")
	require.NoError(t, err)

	// A second writer advances the document.
	_, err = s.Write(ctx, "doc.yaml", "x: 2\n", v1)
	require.NoError(t, err)

	// The first writer's token is now stale.
	_, err = s.Write(ctx, "doc.yaml", "x: 3\n", v1)
	require.True(t, IsVersionConflict(err))

	vc, ok := AsVersionConflict(err)
	require.True(t, ok)
	require.Equal(t, v1, vc.Expected)
	require.False(t, vc.Actual.Zero())
}

func TestMemoryStoreInjectedConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v, err := s.Create(ctx, "doc.yaml", "x: 1\n")
	require.NoError(t, err)

	s.FailNextWrites = 2
	_, err = s.Write(ctx, "doc.yaml", "x: 2\n", v)
	require.True(t, IsVersionConflict(err))
	_, err = s.Write(ctx, "doc.yaml", "x: 2\n", v)
	require.True(t, IsVersionConflict(err))

	// Budget consumed, matching token goes through.
	_, err = s.Write(ctx, "doc.yaml", "x: 2\n", v)
	require.NoError(t, err)
	require.Equal(t, MemoryCalls{Create: 1, Write: 3}, s.Calls())
}
