package gormstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JoinTable is the explicit form of a many-to-many association: a table of
// (owner, target) id pairs. Sets are read and replaced as id slices; there is
// no lazy loading.
type JoinTable struct {
	Table        string
	OwnerColumn  string
	TargetColumn string
	TargetTable  string
}

// joinTableOf derives the join table of association on model from its GORM
// many2many tag.
func joinTableOf(db *gorm.DB, model interface{}, association string) (JoinTable, error) {
	sch, err := parseSchema(db, model)
	if err != nil {
		return JoinTable{}, err
	}
	rel, ok := sch.Relationships.Relations[association]
	if !ok || rel.Type != schema.Many2Many || rel.JoinTable == nil {
		return JoinTable{}, fmt.Errorf("%s has no many-to-many association %q", sch.Name, association)
	}

	jt := JoinTable{Table: rel.JoinTable.Table, TargetTable: rel.FieldSchema.Table}
	for _, reference := range rel.References {
		if reference.OwnPrimaryKey {
			jt.OwnerColumn = reference.ForeignKey.DBName
		} else {
			jt.TargetColumn = reference.ForeignKey.DBName
		}
	}
	if jt.OwnerColumn == "" || jt.TargetColumn == "" {
		return JoinTable{}, fmt.Errorf("incomplete join table for %s.%s", sch.Name, association)
	}
	return jt, nil
}

func (j JoinTable) IDs(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.WithContext(ctx).
		Table(j.Table).
		Where(fmt.Sprintf("%s = ?", j.OwnerColumn), ownerID).
		Pluck(j.TargetColumn, &ids).Error
	return ids, err
}

// Resolve returns the ids among requested that have no row in the target
// table.
func (j JoinTable) Resolve(ctx context.Context, db *gorm.DB, requested []uuid.UUID) ([]uuid.UUID, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	if err := db.WithContext(ctx).Table(j.TargetTable).Where("id IN ?", requested).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	if len(found) == len(requested) {
		return nil, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		seen[id] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Replace makes ids the full set of targets linked to ownerID.
func (j JoinTable) Replace(ctx context.Context, db *gorm.DB, ownerID uuid.UUID, ids []uuid.UUID) error {
	if err := j.Clear(ctx, db, ownerID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, map[string]interface{}{
			j.OwnerColumn:  ownerID,
			j.TargetColumn: id,
		})
	}
	return db.WithContext(ctx).Table(j.Table).Create(rows).Error
}

func (j JoinTable) Clear(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) error {
	return db.WithContext(ctx).
		Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", j.Table, j.OwnerColumn), ownerID).Error
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
