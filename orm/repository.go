package orm

import (
	"context"
	"reflect"

	"github.com/rediwo/mysqlorm/query"
)

// Repository is a type-scoped view over an EntityManager, grounded on the
// teacher's custom-repository-type idea carried in
// metadata.EntityDescriptor.RepositoryType (spec §6.2's Entity
// `repository?` attribute) — a narrower handle callers can pass around
// instead of the whole EntityManager plus a template value.
type Repository struct {
	em       *EntityManager
	template any
}

func (r *Repository) Find(ctx context.Context, key any) (any, error) {
	return r.em.Find(ctx, r.template, key)
}

func (r *Repository) Persist(entity any) error {
	return r.em.Persist(entity)
}

func (r *Repository) Remove(entity any) error {
	return r.em.Remove(entity)
}

// Select starts a SELECT query scoped to this repository's entity type.
func (r *Repository) Select() (*query.SelectBuilder, error) {
	return r.em.factory.Select(r.template)
}

func entityTypeOf(entity any) reflect.Type {
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
