package gormstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uspace/uatrack/pkg/model"
	"github.com/uspace/uatrack/pkg/store"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	f := seed(t, s)
	ctx := context.Background()

	var first, second *model.Email
	do(t, s, func(uow *UnitOfWork) error {
		var created bool
		var err error
		first, created, err = uow.Emails.GetOrCreateWithAuditEnv(ctx, Fields{"address": "ops@uspace.test"}, nil, f.env.ID, tester)
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err = uow.Emails.GetOrCreateWithAuditEnv(ctx, Fields{"address": "ops@uspace.test"}, nil, f.env.ID, tester)
		require.NoError(t, err)
		assert.False(t, created)
		return nil
	})

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), count(t, s, &model.Email{}))
}

func TestEnvironmentGetOrCreate(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewEnvironmentRepository(s.DB(), nil)
	ctx := context.Background()

	env, created, err := repo.GetOrCreate(ctx, Fields{"name": "staging"}, Fields{"description": "pre-production"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "pre-production", env.Description)

	again, created, err := repo.GetOrCreate(ctx, Fields{"name": "staging"}, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, env.ID, again.ID)
}

func TestDeleteNonexistentReturnsFalse(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewEnvironmentRepository(s.DB(), nil)

	deleted, err := repo.Delete(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteExisting(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewEnvironmentRepository(s.DB(), nil)
	ctx := context.Background()

	env, err := repo.Ensure(ctx, "scratch", "")
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, env.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.GetByID(ctx, env.ID, false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByIDMissing(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewEnvironmentRepository(s.DB(), nil)
	ctx := context.Background()
	id := uuid.New()

	got, err := repo.GetByID(ctx, id, false)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.GetByID(ctx, id, true)
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []uuid.UUID{id}, verr.MissingIDs)
	assert.Equal(t, "Environment", verr.Entity)
}

func TestGetAllPagesAndCounts(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewEnvironmentRepository(s.DB(), nil)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta", "gamma"} {
		_, err := repo.Ensure(ctx, name, "")
		require.NoError(t, err)
	}

	page, total, err := repo.GetAll(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	rest, total, err := repo.GetAll(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rest, 1)

	all, _, err := repo.GetAll(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFilterBy(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewEnvironmentRepository(s.DB(), nil)
	ctx := context.Background()

	_, err := repo.Ensure(ctx, "alpha", "lab")
	require.NoError(t, err)
	_, err = repo.Ensure(ctx, "beta", "lab")
	require.NoError(t, err)
	_, err = repo.Ensure(ctx, "gamma", "field")
	require.NoError(t, err)

	rows, err := repo.FilterBy(ctx, Fields{"description": "lab"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestDuplicateIsIntegrityError(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewReferenceRepository[model.System](s.DB(), nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.System{Name: "UTM"}, tester))
	err := repo.Create(ctx, &model.System{Name: "UTM"}, tester)
	require.Error(t, err)
	assert.True(t, store.IsIntegrity(err), "got %v", err)
	assert.Equal(t, int64(1), count(t, s, &model.System{}))
}

func TestUpdateMirrorsFieldsOntoEntity(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewReferenceRepository[model.Section](s.DB(), nil)
	ctx := context.Background()

	section := &model.Section{Name: "Geofencing"}
	require.NoError(t, repo.Create(ctx, section, tester))

	updated, err := repo.Update(ctx, section.ID, Fields{"description": "zones", "id": uuid.New()}, "reviewer")
	require.NoError(t, err)
	assert.Equal(t, section.ID, updated.ID)
	assert.Equal(t, "zones", updated.Description)
	assert.Equal(t, "reviewer", updated.ModifiedBy)

	byName, err := repo.GetByName(ctx, "Geofencing")
	require.NoError(t, err)
	assert.Equal(t, "zones", byName.Description)
}
