// Package view implements generic REST views over a model.
//
// A GenericView holds what every action needs: the schema, the manager,
// the lookup settings and the query pipeline. Capabilities are mixin types
// (CreateMixin, ListMixin, ...) composed by struct embedding; NewViewSet
// inspects which capability interfaces a composition satisfies and builds
// an explicit action table from it.
package view

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/crudkit/core/apierr"
	"github.com/artpar/crudkit/core/events"
	"github.com/artpar/crudkit/core/field"
	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/permission"
	"github.com/artpar/crudkit/core/query"
	"github.com/artpar/crudkit/core/schema"
)

// Action names a viewset capability.
type Action string

const (
	ActionList          Action = "list"
	ActionCreate        Action = "create"
	ActionRetrieve      Action = "retrieve"
	ActionUpdate        Action = "update"
	ActionPartialUpdate Action = "partial_update"
	ActionDestroy       Action = "destroy"
)

// Actions lists every action in route order.
var Actions = []Action{
	ActionList, ActionCreate, ActionRetrieve, ActionUpdate, ActionPartialUpdate, ActionDestroy,
}

// ParseAction converts a name to an Action.
func ParseAction(name string) (Action, bool) {
	for _, a := range Actions {
		if string(a) == name {
			return a, true
		}
	}
	return "", false
}

// DefaultLookupPattern matches integer primary keys.
const DefaultLookupPattern = `[0-9]+`

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Manager persists records of one model.
type Manager interface {
	All() query.Queryset
	Get(ctx context.Context, conds ...query.Condition) (*model.Record, error)
	Create(ctx context.Context, rec *model.Record) (*model.Record, error)
	Update(ctx context.Context, rec *model.Record) (*model.Record, error)
	Delete(ctx context.Context, rec *model.Record) error
}

// Observer receives request and event outcomes, typically for metrics.
type Observer interface {
	RequestStarted()
	ObserveRequest(model, action string, status int, d time.Duration)
	EventPublishFailed(model string)
}

// GenericView is the shared state of a model's views. It is read-only
// once passed to NewViewSet or NewEndpoint.
type GenericView struct {
	Schema  *schema.Schema
	Manager Manager

	// LookupField identifies a single object. Defaults to the primary key.
	LookupField string

	// LookupPattern constrains the lookup path segment.
	// Defaults to DefaultLookupPattern.
	LookupPattern string

	FilterBackends []query.FilterBackend

	// Paginator is optional. Nil disables pagination.
	Paginator query.Paginator

	// Permissions maps actions to the permission they require.
	Permissions map[Action]string
	Checker     permission.Checker

	// Events receives a change event after each committed write.
	Events events.Publisher

	Observer     Observer
	Logger       zerolog.Logger
	MaxBodyBytes int64

	lookup field.Descriptor
}

// Name returns the model name.
func (v *GenericView) Name() string {
	return v.Schema.Model().Name
}

// prepare validates v and fills defaults.
func (v *GenericView) prepare() error {
	if v.Schema == nil {
		return errors.New("view: schema is required")
	}
	if v.Manager == nil {
		return fmt.Errorf("view %s: manager is required", v.Name())
	}

	m := v.Schema.Model()
	if v.LookupField == "" {
		v.LookupField = m.PrimaryKey().Name
	}
	f, ok := m.Field(v.LookupField)
	if !ok {
		return fmt.Errorf("view %s: lookup field %q is not declared", m.Name, v.LookupField)
	}
	d, err := field.Translate(f)
	if err != nil {
		return fmt.Errorf("view %s: lookup field: %w", m.Name, err)
	}
	v.lookup = d

	if v.LookupPattern == "" {
		v.LookupPattern = DefaultLookupPattern
	}
	if _, err := regexp.Compile(v.LookupPattern); err != nil {
		return fmt.Errorf("view %s: lookup pattern: %w", m.Name, err)
	}

	if v.MaxBodyBytes <= 0 {
		v.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return nil
}

// GetQueryset returns the base queryset.
func (v *GenericView) GetQueryset() query.Queryset {
	return v.Manager.All()
}

// FilterQueryset threads qs through the filter backends.
func (v *GenericView) FilterQueryset(r *http.Request, qs query.Queryset) (query.Queryset, error) {
	return query.ApplyFilters(r, qs, v.Schema, v.FilterBackends)
}

// Paginate returns the requested page of qs, or nil when pagination is off.
func (v *GenericView) Paginate(r *http.Request, qs query.Queryset) (*query.Page, error) {
	if v.Paginator == nil {
		return nil, nil
	}
	return v.Paginator.Paginate(r, qs)
}

// GetObject returns the object addressed by lookup. A value that cannot be
// coerced to the lookup field's kind, or that matches no row, is NotFound.
func (v *GenericView) GetObject(ctx context.Context, lookup string) (*model.Record, error) {
	value, reasons := v.lookup.Coerce(lookup)
	if len(reasons) > 0 {
		return nil, apierr.NotFound()
	}

	rec, err := query.Get(ctx, v.GetQueryset().Filter(query.Eq(v.LookupField, value)))
	if errors.Is(err, query.ErrNotFound) {
		return nil, apierr.NotFound()
	}
	return rec, err
}

// publish emits the change event for a committed write.
func (v *GenericView) publish(ctx context.Context, action Action, rec *model.Record, data map[string]any) {
	if v.Events == nil {
		return
	}
	ev := events.New(v.Name(), string(action), rec.PK(), data)
	if err := v.Events.Publish(ctx, ev); err != nil {
		v.Logger.Warn().
			Err(err).
			Str("event", ev.Name).
			Msg("publish change event")
		if v.Observer != nil {
			v.Observer.EventPublishFailed(v.Name())
		}
	}
}
