package gormstore

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// write is what a check inspects before a statement runs: the struct about
// to be inserted, or the column map about to be applied by an update.
type write struct {
	schema *schema.Schema
	entity reflect.Value
	fields Fields
}

func parseSchema(db *gorm.DB, value interface{}) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(value); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return stmt.Schema, nil
}

func newInsert(db *gorm.DB, entity interface{}) (*write, error) {
	sch, err := parseSchema(db, entity)
	if err != nil {
		return nil, err
	}
	return &write{schema: sch, entity: reflect.Indirect(reflect.ValueOf(entity))}, nil
}

func newUpdate(db *gorm.DB, model interface{}, fields Fields) (*write, error) {
	sch, err := parseSchema(db, model)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = Fields{}
	}
	return &write{schema: sch, fields: fields}, nil
}

func (w *write) isInsert() bool {
	return w.fields == nil
}

// has reports whether the entity declares column.
func (w *write) has(column string) bool {
	return w.schema.LookUpField(column) != nil
}

// get returns the value of column and whether it carries a non-zero value.
// Updates only see columns present in the payload.
func (w *write) get(ctx context.Context, column string) (interface{}, bool) {
	field := w.schema.LookUpField(column)
	if field == nil {
		return nil, false
	}
	if w.isInsert() {
		value, zero := field.ValueOf(ctx, w.entity)
		return value, !zero
	}
	for _, key := range []string{field.DBName, field.Name} {
		if value, ok := w.fields[key]; ok {
			return value, !isZero(value)
		}
	}
	return nil, false
}

func (w *write) set(ctx context.Context, column string, value interface{}) error {
	field := w.schema.LookUpField(column)
	if field == nil {
		return fmt.Errorf("%s has no column %q", w.schema.Name, column)
	}
	if w.isInsert() {
		return field.Set(ctx, w.entity, value)
	}
	delete(w.fields, field.Name)
	w.fields[field.DBName] = value
	return nil
}

func isZero(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return true
		}
		v = v.Elem()
	}
	return v.IsZero()
}

// asUUID normalizes the shapes an id column value can take.
func asUUID(value interface{}) (uuid.UUID, bool) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case *uuid.UUID:
		if v == nil {
			return uuid.Nil, false
		}
		return *v, *v != uuid.Nil
	case string:
		id, err := uuid.Parse(v)
		return id, err == nil && id != uuid.Nil
	}
	return uuid.Nil, false
}
