package history

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewRepository(db)
	require.NoError(t, err)
	return repo
}

// seedPair inserts a full source+derived pair and returns both.
func seedPair(t *testing.T, repo *Repository, ownerID, label string) (*SourceArtifact, *DerivedArtifact) {
	t.Helper()
	ctx := context.Background()

	src, err := repo.CreateSource(ctx, ownerID, "image-"+label+".png", label)
	require.NoError(t, err)
	der, err := repo.CreateDerived(ctx, ownerID, "image-"+label+"_colorized.png", src.ID)
	require.NoError(t, err)
	return src, der
}

func TestCreateDerivedRequiresResolvableSource(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.CreateDerived(ctx, "u1", "ref.png", "no-such-source")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDerivedRejectsForeignSource(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	src, err := repo.CreateSource(ctx, "owner-a", "a.png", "label")
	require.NoError(t, err)

	// Ownership is never split across a pair.
	_, err = repo.CreateDerived(ctx, "owner-b", "b.png", src.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByOwnerNewestFirst(t *testing.T) {
	repo := setupRepo(t)

	_, first := seedPair(t, repo, "u1", "one")
	_, second := seedPair(t, repo, "u1", "two")
	_, third := seedPair(t, repo, "u1", "three")

	entries, err := repo.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, third.ID, entries[0].Derived.ID)
	assert.Equal(t, second.ID, entries[1].Derived.ID)
	assert.Equal(t, first.ID, entries[2].Derived.ID)
	assert.Equal(t, "three", entries[0].Source.Label)
}

func TestListByOwnerSkipsOrphanSources(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	// An orphan source (colorization never completed) has no derived row.
	_, err := repo.CreateSource(ctx, "u1", "orphan.png", "orphan")
	require.NoError(t, err)
	seedPair(t, repo, "u1", "paired")

	entries, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "paired", entries[0].Source.Label)
}

func TestOwnershipIsolation(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	srcA, derA := seedPair(t, repo, "owner-a", "a")
	seedPair(t, repo, "owner-b", "b")

	entries, err := repo.ListByOwner(ctx, "owner-b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, derA.ID, entries[0].Derived.ID)

	_, err = repo.FindOneByOwner(ctx, "owner-b", derA.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdateLabel(ctx, "owner-b", srcA.ID, "stolen")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.DeleteByOwner(ctx, "owner-b", derA.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Owner A's pair is untouched.
	entry, err := repo.FindOneByOwner(ctx, "owner-a", derA.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", entry.Source.Label)
}

func TestFindOneByOwner(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	src, der := seedPair(t, repo, "u1", "cat")

	entry, err := repo.FindOneByOwner(ctx, "u1", der.ID)
	require.NoError(t, err)
	assert.Equal(t, der.ID, entry.Derived.ID)
	assert.Equal(t, src.ID, entry.Source.ID)
	assert.Equal(t, src.ID, entry.Derived.SourceID)
	assert.Equal(t, "cat", entry.Source.Label)

	_, err = repo.FindOneByOwner(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateLabelRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	src, der := seedPair(t, repo, "u1", "cat")

	updated, err := repo.UpdateLabel(ctx, "u1", src.ID, "my cat")
	require.NoError(t, err)
	assert.Equal(t, "my cat", updated.Label)
	assert.Equal(t, src.StorageRef, updated.StorageRef, "relabel never changes storage references")

	entry, err := repo.FindOneByOwner(ctx, "u1", der.ID)
	require.NoError(t, err)
	assert.Equal(t, "my cat", entry.Source.Label)
	assert.Equal(t, der.StorageRef, entry.Derived.StorageRef)
}

func TestUpdateLabelRejectsEmpty(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	src, _ := seedPair(t, repo, "u1", "cat")

	for _, label := range []string{"", "   "} {
		_, err := repo.UpdateLabel(ctx, "u1", src.ID, label)
		assert.ErrorIs(t, err, ErrEmptyLabel)
	}
}

func TestDeleteByOwnerRemovesBothRecords(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	src, der := seedPair(t, repo, "u1", "cat")
	seedPair(t, repo, "u1", "dog")

	require.NoError(t, repo.DeleteByOwner(ctx, "u1", der.ID))

	_, err := repo.FindOneByOwner(ctx, "u1", der.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The source row is gone too, not just unlinked.
	_, err = repo.UpdateLabel(ctx, "u1", src.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
