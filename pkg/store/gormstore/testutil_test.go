package gormstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"

	"github.com/uspace/uatrack/pkg/model"
)

const tester = "tester@uspace.test"

func newTestStore(t *testing.T, policy ExecutionPolicy) *Store {
	t.Helper()

	s, err := Open(sqlite.Open("file::memory:?_foreign_keys=on"), Options{
		Logger:   zap.NewNop(),
		Policy:   policy,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, s.AutoMigrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func do(t *testing.T, s *Store, fn func(uow *UnitOfWork) error) {
	t.Helper()
	require.NoError(t, s.Do(context.Background(), fn))
}

func count(t *testing.T, s *Store, value interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(value).Count(&n).Error)
	return n
}

func countTable(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Table(table).Count(&n).Error)
	return n
}

// fixture is a small catalogue shared by most tests.
type fixture struct {
	env     *model.Environment
	system  *model.System
	section *model.Section
}

func seed(t *testing.T, s *Store) fixture {
	t.Helper()
	var f fixture
	do(t, s, func(uow *UnitOfWork) error {
		ctx := context.Background()
		var err error
		if f.env, err = uow.Environments.Ensure(ctx, "integration", "test environment"); err != nil {
			return err
		}
		if f.system, err = uow.Systems.Ensure(ctx, "USSP", tester); err != nil {
			return err
		}
		f.section, err = uow.Sections.Ensure(ctx, "Network identification", tester)
		return err
	})
	return f
}

func (f fixture) caseWithSteps(t *testing.T, s *Store, code string, steps int) *model.Case {
	t.Helper()
	c := &model.Case{Code: code, Name: "case " + code}
	do(t, s, func(uow *UnitOfWork) error {
		ctx := context.Background()
		if err := uow.Cases.Create(ctx, c, Links{model.LinkSystems: {f.system.ID}}, f.env.ID, tester); err != nil {
			return err
		}
		for i := 1; i <= steps; i++ {
			step := &model.Step{CaseID: c.ID, Position: i, Action: fmt.Sprintf("%s action %d", code, i)}
			if err := uow.Steps.Create(ctx, step, nil, f.env.ID, tester); err != nil {
				return err
			}
		}
		return nil
	})
	return c
}

func (f fixture) block(t *testing.T, s *Store, code string, cases ...*model.Case) *model.Block {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(cases))
	for _, c := range cases {
		ids = append(ids, c.ID)
	}
	b := &model.Block{Code: code, Name: "block " + code, SystemID: f.system.ID}
	do(t, s, func(uow *UnitOfWork) error {
		return uow.Blocks.Create(context.Background(), b, Links{model.LinkCases: ids}, f.env.ID, tester)
	})
	return b
}

func (f fixture) campaign(t *testing.T, s *Store, code string, blocks ...*model.Block) *model.Campaign {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.ID)
	}
	c := &model.Campaign{Code: code, Name: "campaign " + code, Version: "1.0", SystemID: f.system.ID}
	do(t, s, func(uow *UnitOfWork) error {
		return uow.Campaigns.Create(context.Background(), c, Links{model.LinkBlocks: ids}, f.env.ID, tester)
	})
	return c
}

func boolPtr(v bool) *bool {
	return &v
}
