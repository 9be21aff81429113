package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tavern/internal/database/memstore"
	"github.com/nfrund/tavern/internal/domain"
	"github.com/nfrund/tavern/internal/testutils"
)

const arrayRoster = `[
  {"uid":"abc","name":"player1","str":18,"dex":8,"con":6,"int":24,"wis":12,"cha":10,"hp":15,"maxhp":15},
  {"uid":"def","name":"player2","str":10,"dex":14,"con":12,"int":10,"wis":10,"cha":16,"hp":12,"maxhp":12}
]`

func TestRosterLoader_Load(t *testing.T) {
	fs := afero.NewMemMapFs()
	loader := NewRosterLoader(fs)

	t.Run("array", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "roster.json", []byte(arrayRoster), 0o644))
		chars, err := loader.Load("roster.json")
		require.NoError(t, err)
		require.Len(t, chars, 2)
		assert.Equal(t, "player1", chars[0].Name)
		assert.Equal(t, 24, chars[0].Int)
	})

	t.Run("wrapped", func(t *testing.T) {
		body := `{"characters":[{"uid":"abc","name":"player1","str":1,"dex":1,"con":1,"int":1,"wis":1,"cha":1,"hp":3,"maxhp":3}]}`
		require.NoError(t, afero.WriteFile(fs, "wrapped.json", []byte(body), 0o644))
		chars, err := loader.Load("wrapped.json")
		require.NoError(t, err)
		assert.Len(t, chars, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.Load("nope.json")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "empty.json", []byte(`[]`), 0o644))
		_, err := loader.Load("empty.json")
		assert.ErrorIs(t, err, ErrEmptyRoster)
	})

	t.Run("hp above max", func(t *testing.T) {
		body := `[{"uid":"abc","name":"x","str":1,"dex":1,"con":1,"int":1,"wis":1,"cha":1,"hp":9,"maxhp":3}]`
		require.NoError(t, afero.WriteFile(fs, "bad.json", []byte(body), 0o644))
		_, err := loader.Load("bad.json")
		assert.Error(t, err)
	})

	t.Run("duplicate uid", func(t *testing.T) {
		body := `[{"uid":"abc","name":"x","str":1,"dex":1,"con":1,"int":1,"wis":1,"cha":1,"hp":3,"maxhp":3},
		          {"uid":"abc","name":"y","str":1,"dex":1,"con":1,"int":1,"wis":1,"cha":1,"hp":3,"maxhp":3}]`
		require.NoError(t, afero.WriteFile(fs, "dup.json", []byte(body), 0o644))
		_, err := loader.Load("dup.json")
		assert.ErrorContains(t, err, "duplicate uid")
	})
}

func TestRosterLoader_SaveThenImport(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	loader := NewRosterLoader(fs)

	require.NoError(t, loader.Save("out/roster.json", domain.Roster(testutils.Characters())))
	exists, err := afero.Exists(fs, "out/roster.json")
	require.NoError(t, err)
	require.True(t, exists)

	store := memstore.New()
	stored, err := loader.Import(ctx, store, "out/roster.json")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)

	roster, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roster, 2)

	// Importing again updates in place.
	_, err = loader.Import(ctx, store, "out/roster.json")
	require.NoError(t, err)
	roster, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roster, 2)
}
