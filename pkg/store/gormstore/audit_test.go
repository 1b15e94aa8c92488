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

func TestCreateWithoutEnvironmentFails(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	seed(t, s)
	repo := NewEmailRepository(s.DB(), nil)

	err := repo.Create(context.Background(), &model.Email{Address: "a@uspace.test"}, nil, uuid.Nil, tester)
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "environment_id", verr.Field)
	assert.Equal(t, int64(0), count(t, s, &model.Email{}))
}

func TestCreateWithUnknownEnvironmentFails(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	repo := NewEmailRepository(s.DB(), nil)
	unknown := uuid.New()

	err := repo.Create(context.Background(), &model.Email{Address: "a@uspace.test"}, nil, unknown, tester)
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []uuid.UUID{unknown}, verr.MissingIDs)
	assert.Equal(t, int64(0), count(t, s, &model.Email{}))
}

func TestCreateWithoutModifiedByFails(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	f := seed(t, s)
	repo := NewEmailRepository(s.DB(), nil)

	for _, author := range []string{"", "   "} {
		err := repo.Create(context.Background(), &model.Email{Address: "a@uspace.test"}, nil, f.env.ID, author)
		var verr *store.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "modified_by", verr.Field)
	}
	assert.Equal(t, int64(0), count(t, s, &model.Email{}))

	refs := NewReferenceRepository[model.Reason](s.DB(), nil)
	err := refs.Create(context.Background(), &model.Reason{Name: "NOTAM"}, "")
	require.True(t, store.IsValidation(err))
	assert.Equal(t, int64(0), count(t, s, &model.Reason{}))
}

func TestCreateInjectsAuditFields(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	f := seed(t, s)
	repo := NewEmailRepository(s.DB(), nil)

	email := &model.Email{Address: "a@uspace.test", EnvironmentID: uuid.New()}
	require.NoError(t, repo.Create(context.Background(), email, nil, f.env.ID, "  alice "))
	assert.Equal(t, f.env.ID, email.EnvironmentID)
	assert.Equal(t, "alice", email.ModifiedBy)
	assert.NotEqual(t, uuid.Nil, email.ID)
}

func TestMissingRequiredReferenceFails(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	f := seed(t, s)
	repo := NewOperatorRepository(s.DB(), nil)
	ctx := context.Background()

	err := repo.Create(ctx, &model.Operator{Name: "SkyOps"}, nil, f.env.ID, tester)
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email_id", verr.Field)

	dangling := uuid.New()
	err = repo.Create(ctx, &model.Operator{Name: "SkyOps", EmailID: dangling}, nil, f.env.ID, tester)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []uuid.UUID{dangling}, verr.MissingIDs)
	assert.Equal(t, int64(0), count(t, s, &model.Operator{}))
}

func TestUpdateCannotChangeEnvironment(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	f := seed(t, s)
	ctx := context.Background()
	repo := NewEmailRepository(s.DB(), nil)

	other, err := NewEnvironmentRepository(s.DB(), nil).Ensure(ctx, "other", "")
	require.NoError(t, err)

	email := &model.Email{Address: "a@uspace.test"}
	require.NoError(t, repo.Create(ctx, email, nil, f.env.ID, tester))

	_, err = repo.Update(ctx, email.ID, Fields{"address": "b@uspace.test"}, nil, other.ID, tester)
	require.True(t, store.IsValidation(err), "got %v", err)

	updated, err := repo.Update(ctx, email.ID, Fields{"address": "b@uspace.test"}, nil, f.env.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "b@uspace.test", updated.Address)
	assert.Equal(t, "bob", updated.ModifiedBy)

	got, err := repo.GetByAddress(ctx, f.env.ID, "b@uspace.test")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, email.ID, got.ID)
}

func TestListByEnvironment(t *testing.T) {
	s := newTestStore(t, DefaultExecutionPolicy())
	f := seed(t, s)
	ctx := context.Background()
	repo := NewUhubOrgRepository(s.DB(), nil)

	other, err := NewEnvironmentRepository(s.DB(), nil).Ensure(ctx, "other", "")
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, &model.UhubOrg{Name: "ENAIRE", Role: "ANSP"}, nil, f.env.ID, tester))
	require.NoError(t, repo.Create(ctx, &model.UhubOrg{Name: "ENAIRE", Role: "ANSP"}, nil, other.ID, tester))

	rows, err := repo.ListByEnvironment(ctx, f.env.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.env.ID, rows[0].EnvironmentID)
}
