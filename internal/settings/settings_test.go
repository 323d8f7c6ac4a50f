package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobcard-manager/internal/storage"
)

func TestLoadDefaults(t *testing.T) {
	repo := NewRepository(storage.NewMemoryArea())
	s, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
	assert.True(t, s.Hiding)
	assert.False(t, s.KeywordDismiss)
}

func TestSeedKeepsExistingKeys(t *testing.T) {
	ctx := context.Background()
	area := storage.NewMemoryArea()
	repo := NewRepository(area)
	require.NoError(t, repo.SetFlag(ctx, KeyHiding, false))

	require.NoError(t, repo.Seed(ctx, Settings{
		Hiding:   true,
		Keywords: []string{" Recruiter ", "sales", "recruiter"},
	}))

	s, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, s.Hiding, "existing flag wins over seed")
	assert.Equal(t, []string{"recruiter", "sales"}, s.Keywords)
}

func TestSetList(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(storage.NewMemoryArea())

	list, err := repo.SetList(ctx, KeyCompanies, []string{"Acme", "", "globex", "ACME"})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, list)

	s, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, s.BlockedCompanies)
}

func TestTermHelpers(t *testing.T) {
	list, err := AddTerm([]string{"sales"}, "  Marketing ")
	require.NoError(t, err)
	assert.Equal(t, []string{"marketing", "sales"}, list)

	_, err = AddTerm(list, "SALES")
	assert.Error(t, err)
	_, err = AddTerm(list, " ")
	assert.Error(t, err)

	assert.Equal(t, []string{"sales"}, RemoveTerm(list, "Marketing"))
	assert.Equal(t, "marketing\nsales", Export(list))
}
