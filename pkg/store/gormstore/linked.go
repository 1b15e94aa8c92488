package gormstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/store"
)

// Links carries the many-to-many sets of a write, keyed by association name
// (model.LinkSystems, ...). A key that is present replaces the whole set; an
// absent key leaves the set untouched on update.
type Links map[string][]uuid.UUID

// LinkedRepository writes an entity together with its many-to-many sets.
// The base row and every join row are written in one nested transaction; an
// id that does not resolve aborts the whole write.
type LinkedRepository[T any] struct {
	*AuditedRepository[T]
	associations []string
	required     map[string]bool
	preloads     []string
}

type linkedOption func(*linkedConfig)

type linkedConfig struct {
	associations []string
	required     []string
	preloads     []string
	refs         []ref
}

func withLinks(associations ...string) linkedOption {
	return func(c *linkedConfig) { c.associations = append(c.associations, associations...) }
}

// withRequiredLinks declares associations that must be non-empty.
func withRequiredLinks(associations ...string) linkedOption {
	return func(c *linkedConfig) {
		c.associations = append(c.associations, associations...)
		c.required = append(c.required, associations...)
	}
}

func withPreload(names ...string) linkedOption {
	return func(c *linkedConfig) { c.preloads = append(c.preloads, names...) }
}

func withRefs(refs ...ref) linkedOption {
	return func(c *linkedConfig) { c.refs = append(c.refs, refs...) }
}

func NewLinkedRepository[T any](db *gorm.DB, logger *zap.Logger, opts ...linkedOption) *LinkedRepository[T] {
	var cfg linkedConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	required := make(map[string]bool, len(cfg.required))
	for _, name := range cfg.required {
		required[name] = true
	}
	return &LinkedRepository[T]{
		AuditedRepository: NewAuditedRepository[T](db, logger, cfg.refs...),
		associations:      cfg.associations,
		required:          required,
		preloads:          append(append([]string{}, cfg.associations...), cfg.preloads...),
	}
}

// on returns a copy of the repository bound to tx.
func (r *LinkedRepository[T]) on(tx *gorm.DB) *LinkedRepository[T] {
	audited := &AuditedRepository[T]{
		Repository: &Repository[T]{db: tx, logger: r.logger, entity: r.entity},
		refs:       r.refs,
	}
	return &LinkedRepository[T]{
		AuditedRepository: audited,
		associations:      r.associations,
		required:          r.required,
		preloads:          r.preloads,
	}
}

// Create inserts entity with environment and audit checks, then writes one
// join row per linked id.
func (r *LinkedRepository[T]) Create(ctx context.Context, entity *T, links Links, environmentID uuid.UUID, modifiedBy string) error {
	links, err := r.normalize(links)
	if err != nil {
		return err
	}
	for _, name := range r.associations {
		if r.required[name] && len(links[name]) == 0 {
			return r.linkError(name, "at least one id is required", nil)
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		if err := repo.CreateWithAuditEnv(ctx, entity, environmentID, modifiedBy); err != nil {
			return err
		}
		return repo.replaceLinks(ctx, entityID(entity), links)
	})
}

// Update applies fields and replaces the sets named in links. Relation ids
// may also be passed inside fields under the association name or its
// snake_case column form ("uhub_users").
func (r *LinkedRepository[T]) Update(ctx context.Context, id uuid.UUID, fields Fields, links Links, environmentID uuid.UUID, modifiedBy string) (*T, error) {
	fields, links, err := r.split(fields, links)
	if err != nil {
		return nil, err
	}
	for name, ids := range links {
		if r.required[name] && len(ids) == 0 {
			return nil, r.linkError(name, "at least one id is required", nil)
		}
	}

	var updated *T
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		entity, err := repo.UpdateWithAuditEnv(ctx, id, fields, environmentID, modifiedBy)
		if err != nil {
			return err
		}
		if err := repo.replaceLinks(ctx, id, links); err != nil {
			return err
		}
		updated = entity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete clears the join rows the entity owns before removing it. Rows on
// the inverse side of an association still reference it and make the
// delete fail with an integrity error.
func (r *LinkedRepository[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.on(tx)
		for _, name := range r.associations {
			jt, err := joinTableOf(tx, new(T), name)
			if err != nil {
				return err
			}
			if err := jt.Clear(ctx, tx, id); err != nil {
				return repo.observe("unlink", err)
			}
		}
		ok, err := repo.Repository.Delete(ctx, id)
		deleted = ok
		return err
	})
	return deleted, err
}

// GetWithRelations loads the entity with its many-to-many sets and the
// repository's declared belongs-to associations.
func (r *LinkedRepository[T]) GetWithRelations(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	query := r.db.WithContext(ctx)
	for _, name := range r.preloads {
		query = query.Preload(name)
	}
	res := query.Where("id = ?", id).Limit(1).Find(&entity)
	if res.Error != nil {
		return nil, store.Classify(r.entity, "get", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &entity, nil
}

// LinkedIDs reads the ids of one association straight from its join table.
func (r *LinkedRepository[T]) LinkedIDs(ctx context.Context, id uuid.UUID, association string) ([]uuid.UUID, error) {
	name, ok := r.association(association)
	if !ok {
		return nil, r.linkError(association, "unknown association", nil)
	}
	jt, err := joinTableOf(r.db, new(T), name)
	if err != nil {
		return nil, err
	}
	ids, err := jt.IDs(ctx, r.db, id)
	if err != nil {
		return nil, store.Classify(r.entity, "get", err)
	}
	return ids, nil
}

func (r *LinkedRepository[T]) replaceLinks(ctx context.Context, ownerID uuid.UUID, links Links) error {
	for _, name := range r.associations {
		ids, ok := links[name]
		if !ok {
			continue
		}
		jt, err := joinTableOf(r.db, new(T), name)
		if err != nil {
			return err
		}
		missing, err := jt.Resolve(ctx, r.db, ids)
		if err != nil {
			return store.Classify(r.entity, "resolve", err)
		}
		if len(missing) > 0 {
			return r.linkError(name, "unresolved ids", missing)
		}
		if err := jt.Replace(ctx, r.db, ownerID, ids); err != nil {
			return r.observe("link", err)
		}
		r.logger.Debug("links replaced",
			zap.String("entity", r.entity),
			zap.String("association", name),
			zap.Int("count", len(ids)),
		)
	}
	return nil
}

func (r *LinkedRepository[T]) linkError(association, message string, missing []uuid.UUID) error {
	metrics.ValidationFailures.WithLabelValues(r.entity, association).Inc()
	return &store.ValidationError{
		Entity:     r.entity,
		Field:      association,
		Message:    message,
		MissingIDs: missing,
	}
}

// association maps a payload key onto a declared association name.
func (r *LinkedRepository[T]) association(key string) (string, bool) {
	for _, name := range r.associations {
		if key == name || strings.EqualFold(key, name) || key == snakeCase(name) {
			return name, true
		}
	}
	return "", false
}

func (r *LinkedRepository[T]) normalize(links Links) (Links, error) {
	out := make(Links, len(links))
	for key, ids := range links {
		name, ok := r.association(key)
		if !ok {
			return nil, r.linkError(key, "unknown association", nil)
		}
		out[name] = dedupe(append(out[name], ids...))
	}
	return out, nil
}

// split moves relation ids found in fields into links.
func (r *LinkedRepository[T]) split(fields Fields, links Links) (Fields, Links, error) {
	links, err := r.normalize(links)
	if err != nil {
		return nil, nil, err
	}
	rest := make(Fields, len(fields))
	for key, value := range fields {
		name, ok := r.association(key)
		if !ok {
			rest[key] = value
			continue
		}
		ids, err := toIDs(value)
		if err != nil {
			return nil, nil, r.linkError(name, err.Error(), nil)
		}
		links[name] = dedupe(append(links[name], ids...))
	}
	return rest, links, nil
}

func snakeCase(name string) string {
	return schema.NamingStrategy{}.ColumnName("", name)
}

func toIDs(value interface{}) ([]uuid.UUID, error) {
	switch v := value.(type) {
	case nil:
		return []uuid.UUID{}, nil
	case []uuid.UUID:
		return v, nil
	case []string:
		ids := make([]uuid.UUID, 0, len(v))
		for _, s := range v {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q", s)
			}
			ids = append(ids, id)
		}
		return ids, nil
	case []interface{}:
		ids := make([]uuid.UUID, 0, len(v))
		for _, item := range v {
			id, ok := asUUID(item)
			if !ok {
				return nil, fmt.Errorf("invalid id %v", item)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	return nil, fmt.Errorf("unsupported id list %T", value)
}
