package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/artpar/crudkit/adapters/sqlstore"
	"github.com/artpar/crudkit/core/events"
	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/permission"
	"github.com/artpar/crudkit/core/query"
	"github.com/artpar/crudkit/core/schema"
	"github.com/artpar/crudkit/core/view"
)

// DefaultPageSize applies when a paginated model sets no page_size.
const DefaultPageSize = 20

// Deps are the collaborators shared by every generated view.
type Deps struct {
	Logger       zerolog.Logger
	Events       events.Publisher
	Observer     view.Observer
	Checker      permission.Checker
	MaxBodyBytes int64
}

// Mounted is a viewset and the full path it serves.
type Mounted struct {
	Definition model.Definition
	Path       string
	ViewSet    *view.ViewSet
}

// BuildViews creates the table and viewset of every definition.
func BuildViews(ctx context.Context, pool *sqlstore.Pool, defs []model.Definition, basePath string, deps Deps) ([]Mounted, error) {
	base := strings.TrimRight(basePath, "/")
	out := make([]Mounted, 0, len(defs))

	for i := range defs {
		def := defs[i]
		m := def.Model

		if err := sqlstore.EnsureTable(ctx, pool, &m); err != nil {
			return nil, fmt.Errorf("model %s: %w", def.Name, err)
		}

		vs, err := NewViewSet(def, sqlstore.NewManager(pool, &m), deps)
		if err != nil {
			return nil, err
		}
		out = append(out, Mounted{
			Definition: def,
			Path:       base + def.API.Path,
			ViewSet:    vs,
		})
	}
	return out, nil
}

// NewViewSet builds the viewset a definition declares over manager.
func NewViewSet(def model.Definition, manager view.Manager, deps Deps) (*view.ViewSet, error) {
	m := def.Model

	s, err := schema.Build(&m, schema.Only(def.API.Fields...))
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", def.Name, err)
	}

	filters, err := filterBackends(def.API.Filters)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", def.Name, err)
	}

	perms, err := permissions(def.API.Permissions)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", def.Name, err)
	}

	caps, err := capabilities(def.API)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", def.Name, err)
	}

	v := &view.GenericView{
		Schema:         s,
		Manager:        manager,
		LookupField:    def.API.LookupField,
		LookupPattern:  def.API.LookupPattern,
		FilterBackends: filters,
		Paginator:      paginator(def.API),
		Permissions:    perms,
		Checker:        deps.Checker,
		Events:         deps.Events,
		Observer:       deps.Observer,
		Logger:         deps.Logger.With().Str("model", def.Name).Logger(),
		MaxBodyBytes:   deps.MaxBodyBytes,
	}
	return view.NewViewSet(v, caps)
}

func filterBackends(names []string) ([]query.FilterBackend, error) {
	backends := make([]query.FilterBackend, 0, len(names))
	for _, name := range names {
		switch name {
		case "field":
			backends = append(backends, query.FieldFilter{})
		case "search":
			backends = append(backends, query.SearchFilter{})
		case "ordering":
			backends = append(backends, query.OrderingFilter{})
		default:
			return nil, fmt.Errorf("unknown filter %q", name)
		}
	}
	return backends, nil
}

func paginator(api model.API) query.Paginator {
	size := api.PageSize
	if size == 0 {
		size = DefaultPageSize
	}
	switch api.Pagination {
	case "limit_offset":
		return query.LimitOffset{DefaultLimit: size, MaxLimit: api.MaxPageSize}
	case "page_number":
		return query.PageNumber{PageSize: size, MaxPageSize: api.MaxPageSize}
	}
	return nil
}

func permissions(byName map[string]string) (map[view.Action]string, error) {
	perms := make(map[view.Action]string, len(byName))
	for name, perm := range byName {
		a, ok := view.ParseAction(name)
		if !ok {
			return nil, fmt.Errorf("permissions: unknown action %q", name)
		}
		perms[a] = perm
	}
	return perms, nil
}

func capabilities(api model.API) (any, error) {
	if len(api.Actions) > 0 {
		actions := make([]view.Action, 0, len(api.Actions))
		for _, name := range api.Actions {
			a, ok := view.ParseAction(name)
			if !ok {
				return nil, fmt.Errorf("actions: unknown action %q", name)
			}
			actions = append(actions, a)
		}
		return view.Compose(actions...), nil
	}
	if api.ViewSet == "readonly" {
		return view.ReadOnlyModelViewSet{}, nil
	}
	return view.ModelViewSet{}, nil
}
