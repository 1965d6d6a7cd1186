package view

import (
	"net/http"
	"strconv"

	"github.com/artpar/crudkit/core/schema"
)

// HandlerFunc executes one action. lookup is empty for collection actions.
type HandlerFunc func(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error

// Capability interfaces. A viewset composition provides an action by
// satisfying the matching interface, usually by embedding a mixin.
type (
	Creator interface {
		Create(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error
	}
	Lister interface {
		List(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error
	}
	Retriever interface {
		Retrieve(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error
	}
	Updater interface {
		Update(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error
		PartialUpdate(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error
	}
	Destroyer interface {
		Destroy(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error
	}
)

// CreateMixin creates an object from the request body.
type CreateMixin struct{}

// Create loads the body, saves a new record and answers 201.
func (CreateMixin) Create(v *GenericView, w http.ResponseWriter, r *http.Request, _ string) error {
	data, err := decodeBody(w, r, v.MaxBodyBytes)
	if err != nil {
		return err
	}
	rec, err := v.Schema.Load(data)
	if err != nil {
		return err
	}

	saved, err := v.Manager.Create(r.Context(), rec)
	if err != nil {
		return err
	}

	out := v.Schema.Dump(saved)
	v.publish(r.Context(), ActionCreate, saved, out.Map())
	return writeJSON(w, http.StatusCreated, out)
}

// ListMixin lists the filtered queryset.
type ListMixin struct{}

// List answers 200 with the serialized page, or the whole filtered set
// when pagination is off. X-Total-Count always carries the filtered,
// unpaginated count.
func (ListMixin) List(v *GenericView, w http.ResponseWriter, r *http.Request, _ string) error {
	ctx := r.Context()

	qs, err := v.FilterQueryset(r, v.GetQueryset())
	if err != nil {
		return err
	}
	total, err := qs.Count(ctx)
	if err != nil {
		return err
	}

	page, err := v.Paginate(r, qs)
	if err != nil {
		return err
	}

	var out []schema.Data
	if page != nil {
		out = v.Schema.DumpMany(page.Records)
	} else {
		recs, err := qs.Execute(ctx)
		if err != nil {
			return err
		}
		out = v.Schema.DumpMany(recs)
	}

	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	return writeJSON(w, http.StatusOK, out)
}

// RetrieveMixin returns one object.
type RetrieveMixin struct{}

// Retrieve answers 200 with the serialized object.
func (RetrieveMixin) Retrieve(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error {
	obj, err := v.GetObject(r.Context(), lookup)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, v.Schema.Dump(obj))
}

// UpdateMixin replaces or patches one object.
type UpdateMixin struct{}

// Update applies a full update.
func (UpdateMixin) Update(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error {
	return update(v, w, r, lookup, ActionUpdate)
}

// PartialUpdate applies only the supplied fields.
func (UpdateMixin) PartialUpdate(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error {
	return update(v, w, r, lookup, ActionPartialUpdate)
}

func update(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string, action Action) error {
	ctx := r.Context()

	obj, err := v.GetObject(ctx, lookup)
	if err != nil {
		return err
	}
	data, err := decodeBody(w, r, v.MaxBodyBytes)
	if err != nil {
		return err
	}

	opts := []schema.LoadOption{schema.Instance(obj)}
	if action == ActionPartialUpdate {
		opts = append(opts, schema.Partial())
	}
	if _, err := v.Schema.Load(data, opts...); err != nil {
		return err
	}

	saved, err := v.Manager.Update(ctx, obj)
	if err != nil {
		return err
	}

	out := v.Schema.Dump(saved)
	v.publish(ctx, action, saved, out.Map())
	return writeJSON(w, http.StatusOK, out)
}

// DestroyMixin deletes one object.
type DestroyMixin struct{}

// Destroy answers 204 with an empty body.
func (DestroyMixin) Destroy(v *GenericView, w http.ResponseWriter, r *http.Request, lookup string) error {
	ctx := r.Context()

	obj, err := v.GetObject(ctx, lookup)
	if err != nil {
		return err
	}
	if err := v.Manager.Delete(ctx, obj); err != nil {
		return err
	}

	v.publish(ctx, ActionDestroy, obj, nil)
	w.WriteHeader(http.StatusNoContent)
	return nil
}
