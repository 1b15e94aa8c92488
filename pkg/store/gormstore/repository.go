package gormstore

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/store"
)

// Fields is a column-keyed payload used for updates, filters and
// get-or-create criteria.
type Fields map[string]interface{}

// Repository is the type-parameterized CRUD layer every entity repository is
// built on. Writes run in a nested transaction so a failed statement never
// poisons the caller's transaction.
type Repository[T any] struct {
	db     *gorm.DB
	logger *zap.Logger
	entity string
}

func NewRepository[T any](db *gorm.DB, logger *zap.Logger) *Repository[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository[T]{db: db, logger: logger, entity: entityName[T]()}
}

func entityName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().Name()
}

func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

// GetByID returns nil, nil when the row does not exist, unless failIfMissing
// is set, in which case absence is a validation error.
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID, failIfMissing bool) (*T, error) {
	var entity T
	res := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&entity)
	if res.Error != nil {
		return nil, store.Classify(r.entity, "get", res.Error)
	}
	if res.RowsAffected == 0 {
		if failIfMissing {
			return nil, &store.ValidationError{
				Entity:     r.entity,
				Field:      "id",
				Message:    "not found",
				MissingIDs: []uuid.UUID{id},
			}
		}
		return nil, nil
	}
	return &entity, nil
}

// GetAll returns one page and the total row count. A non-positive limit
// returns every row from offset on.
func (r *Repository[T]) GetAll(ctx context.Context, limit, offset int) ([]T, int64, error) {
	var rows []T
	var total int64

	if err := r.db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return nil, 0, store.Classify(r.entity, "count", err)
	}

	query := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, store.Classify(r.entity, "list", err)
	}
	return rows, total, nil
}

func (r *Repository[T]) FilterBy(ctx context.Context, criteria Fields) ([]T, error) {
	var rows []T
	query := r.db.WithContext(ctx)
	if len(criteria) > 0 {
		query = query.Where(map[string]interface{}(criteria))
	}
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, store.Classify(r.entity, "filter", err)
	}
	return rows, nil
}

// FindOne returns the first row matching criteria or nil when none does.
func (r *Repository[T]) FindOne(ctx context.Context, criteria Fields) (*T, error) {
	var entity T
	res := r.db.WithContext(ctx).Where(map[string]interface{}(criteria)).Limit(1).Find(&entity)
	if res.Error != nil {
		return nil, store.Classify(r.entity, "get", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &entity, nil
}

func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(entity).Error
	})
	return r.observe("create", err)
}

// Update applies fields to the row backing entity and mirrors them onto the
// struct.
func (r *Repository[T]) Update(ctx context.Context, entity *T, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(entity).Omit(clause.Associations).Updates(map[string]interface{}(fields)).Error
	})
	return r.observe("update", err)
}

// Delete reports false without error when no row has the id.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(new(T))
		affected = res.RowsAffected
		return res.Error
	})
	if err := r.observe("delete", err); err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetOrCreate returns the row matching criteria, creating it from criteria
// and defaults when none exists. created is true only for the inserting call.
func (r *Repository[T]) GetOrCreate(ctx context.Context, criteria, defaults Fields) (*T, bool, error) {
	return r.getOrCreate(ctx, criteria, defaults)
}

func (r *Repository[T]) getOrCreate(ctx context.Context, criteria, defaults Fields, checks ...check) (*T, bool, error) {
	existing, err := r.FindOne(ctx, criteria)
	if err != nil || existing != nil {
		return existing, false, err
	}

	entity := new(T)
	w, err := newInsert(r.db, entity)
	if err != nil {
		return nil, false, err
	}
	for _, values := range []Fields{defaults, criteria} {
		for column, value := range values {
			if err := w.set(ctx, column, value); err != nil {
				return nil, false, err
			}
		}
	}
	if err := r.runChecks(ctx, w, checks...); err != nil {
		return nil, false, err
	}
	if err := r.Create(ctx, entity); err != nil {
		return nil, false, err
	}
	return entity, true, nil
}

func (r *Repository[T]) observe(op string, err error) error {
	if err == nil {
		metrics.RepositoryWrites.WithLabelValues(r.entity, op, metrics.ResultOK).Inc()
		r.logger.Debug("repository write", zap.String("entity", r.entity), zap.String("op", op))
		return nil
	}

	err = store.Classify(r.entity, op, err)
	if store.IsIntegrity(err) {
		metrics.RepositoryWrites.WithLabelValues(r.entity, op, metrics.ResultIntegrity).Inc()
		r.logger.Warn("integrity violation", zap.String("entity", r.entity), zap.String("op", op), zap.Error(err))
	} else {
		metrics.RepositoryWrites.WithLabelValues(r.entity, op, metrics.ResultError).Inc()
		r.logger.Error("repository write failed", zap.String("entity", r.entity), zap.String("op", op), zap.Error(err))
	}
	return err
}

func entityID(entity interface{}) uuid.UUID {
	if e, ok := entity.(interface{ EntityID() uuid.UUID }); ok {
		return e.EntityID()
	}
	return uuid.Nil
}
