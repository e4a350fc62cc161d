package service

import (
	"context"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/fieldops/internal/model"
)

// refs collects the foreign ids a list view needs resolved.
type refs struct {
	users, projects, equipment, items []uint64
}

func (r *refs) user(id uint64)    { r.users = append(r.users, id) }
func (r *refs) project(id uint64) { r.projects = append(r.projects, id) }
func (r *refs) equip(id uint64)   { r.equipment = append(r.equipment, id) }
func (r *refs) item(id uint64)    { r.items = append(r.items, id) }

func (r *refs) optUser(id *uint64) {
	if id != nil {
		r.user(*id)
	}
}

func (r *refs) optProject(id *uint64) {
	if id != nil {
		r.project(*id)
	}
}

// names is the id → display name table for one response.
type names struct {
	users, projects, equipment, items map[uint64]string
}

// resolve runs one IN (...) query per referenced table, concurrently.
// Results are keyed maps, so the caller's row order is unaffected by which
// query finishes first.  Must not be called inside a transaction.
func (s *Service) resolve(ctx context.Context, r refs) (names, error) {
	var n names
	g, gctx := errgroup.WithContext(ctx)
	lookup := func(ids []uint64, fn func(context.Context, []uint64) (map[uint64]string, error), out *map[uint64]string) {
		ids = lo.Uniq(ids)
		if len(ids) == 0 {
			*out = map[uint64]string{}
			return
		}
		g.Go(func() error {
			m, err := fn(gctx, ids)
			*out = m
			return err
		})
	}
	lookup(r.users, s.users.NamesByID, &n.users)
	lookup(r.projects, s.projects.NamesByID, &n.projects)
	lookup(r.equipment, s.equipment.NamesByID, &n.equipment)
	lookup(r.items, s.inventory.ItemNamesByID, &n.items)
	if err := g.Wait(); err != nil {
		return names{}, err
	}
	return n, nil
}

func nameOr(m map[uint64]string, id uint64, unknown string) string {
	if v, ok := m[id]; ok {
		return v
	}
	return unknown
}

func (n names) user(id uint64) string          { return nameOr(n.users, id, model.UnknownUser) }
func (n names) project(id uint64) string       { return nameOr(n.projects, id, model.UnknownProject) }
func (n names) equipmentName(id uint64) string { return nameOr(n.equipment, id, model.UnknownEquipment) }
func (n names) item(id uint64) string          { return nameOr(n.items, id, model.UnknownItem) }

// optUser returns nil for a nil reference and the display name otherwise.
func (n names) optUser(id *uint64) *string {
	if id == nil {
		return nil
	}
	return ptr(n.user(*id))
}

func (n names) optProject(id *uint64) *string {
	if id == nil {
		return nil
	}
	return ptr(n.project(*id))
}
