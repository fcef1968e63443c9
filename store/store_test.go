package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/rummikub/game"
	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCurrentCreatesDefault(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	rs := rules.Default()

	g, err := s.Current(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, game.DefaultName, g.Name())
	assert.True(t, g.Initial())

	names, err := s.List(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, []string{game.DefaultName}, names)
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	rs := rules.Default()

	g := game.New(rs, "evening")
	tiles, err := tilemapping.ParseTiles("k1-3 j")
	require.NoError(t, err)
	require.NoError(t, g.AddRack(tiles...))
	require.NoError(t, g.Place(tiles[:3]...))
	g.SetInitial(false)
	require.NoError(t, s.Save(ctx, g))

	loaded, err := s.Load(ctx, rs, "evening")
	require.NoError(t, err)
	assert.Equal(t, "j", loaded.Rack().String())
	assert.Equal(t, "k1 k2 k3", loaded.Table().String())
	assert.False(t, loaded.Initial())

	// saving again replaces the game
	g.ClearTable()
	require.NoError(t, s.Save(ctx, g))
	loaded, err = s.Load(ctx, rs, "evening")
	require.NoError(t, err)
	assert.True(t, loaded.Table().Empty())

	_, err = s.Load(ctx, rs, "morning")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRulesetFamiliesAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	rs := rules.Default()
	p := rules.DefaultParams()
	p.Colours = 5
	other, err := rules.New(p)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, game.New(rs, "four")))
	require.NoError(t, s.Save(ctx, game.New(other, "five")))

	names, err := s.List(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, []string{"five"}, names)

	// min length is not part of the family
	p = rules.DefaultParams()
	p.MinLen = 4
	longer, err := rules.New(p)
	require.NoError(t, err)
	names, err = s.List(ctx, longer)
	require.NoError(t, err)
	assert.Equal(t, []string{"four"}, names)
}

func TestRenameDeleteCurrent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	rs := rules.Default()

	require.NoError(t, s.Save(ctx, game.New(rs, "a")))
	require.NoError(t, s.Save(ctx, game.New(rs, "b")))
	require.NoError(t, s.SetCurrent(ctx, rs, "b"))

	assert.ErrorIs(t, s.Rename(ctx, rs, "b", "a"), ErrExists)
	require.NoError(t, s.Rename(ctx, rs, "b", "c"))
	g, err := s.Current(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, "c", g.Name())

	assert.ErrorIs(t, s.Rename(ctx, rs, "missing", "d"), ErrNotFound)

	require.NoError(t, s.Delete(ctx, rs, "c"))
	g, err = s.Current(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, "a", g.Name())

	assert.ErrorIs(t, s.Delete(ctx, rs, "c"), ErrNotFound)
}
