package view

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/artpar/crudkit/core/apierr"
	"github.com/artpar/crudkit/core/permission"
)

// Route is one method and pattern a viewset answers.
type Route struct {
	Action  Action
	Method  string
	Pattern string

	// Enabled is false when the composition lacks the action; the route is
	// still mounted and answers 405.
	Enabled bool
}

// ViewSet binds a GenericView to a capability composition.
// It is immutable after construction.
type ViewSet struct {
	view     *GenericView
	handlers map[Action]HandlerFunc
	param    string
}

// NewViewSet builds the action table for caps, a value embedding mixins
// (ModelViewSet{}, ReadOnlyModelViewSet{}, a custom struct) or the result
// of Compose.
func NewViewSet(v *GenericView, caps any) (*ViewSet, error) {
	if v == nil {
		return nil, errors.New("view: generic view is required")
	}
	gv := *v
	if err := gv.prepare(); err != nil {
		return nil, err
	}

	handlers := handlerTable(caps)
	if len(handlers) == 0 {
		return nil, fmt.Errorf("view %s: %T provides no capabilities", gv.Name(), caps)
	}

	return &ViewSet{view: &gv, handlers: handlers, param: gv.LookupField}, nil
}

// View returns the bound generic view.
func (vs *ViewSet) View() *GenericView {
	return vs.view
}

// Has reports whether the composition provides a.
func (vs *ViewSet) Has(a Action) bool {
	_, ok := vs.handlers[a]
	return ok
}

// Actions returns the provided actions in route order.
func (vs *ViewSet) Actions() []Action {
	var out []Action
	for _, a := range Actions {
		if vs.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// DetailPattern returns the single-object pattern under path.
func (vs *ViewSet) DetailPattern(path string) string {
	return strings.TrimRight(path, "/") + "/{" + vs.param + ":" + vs.view.LookupPattern + "}"
}

// Routes returns the canonical routes under path.
func (vs *ViewSet) Routes(path string) []Route {
	collection := strings.TrimRight(path, "/")
	if collection == "" {
		collection = "/"
	}
	detail := vs.DetailPattern(path)

	routes := []Route{
		{Action: ActionList, Method: http.MethodGet, Pattern: collection},
		{Action: ActionCreate, Method: http.MethodPost, Pattern: collection},
		{Action: ActionRetrieve, Method: http.MethodGet, Pattern: detail},
		{Action: ActionUpdate, Method: http.MethodPut, Pattern: detail},
		{Action: ActionPartialUpdate, Method: http.MethodPatch, Pattern: detail},
		{Action: ActionDestroy, Method: http.MethodDelete, Pattern: detail},
	}
	for i := range routes {
		routes[i].Enabled = vs.Has(routes[i].Action)
	}
	return routes
}

// Mount registers every route under path on r. Methods outside the route
// set, lookups that do not match the pattern and actions the composition
// lacks all answer with the JSON error envelope.
func (vs *ViewSet) Mount(r chi.Router, path string) {
	detail := "/{" + vs.param + ":" + vs.view.LookupPattern + "}"

	r.Route(strings.TrimRight(path, "/"), func(sr chi.Router) {
		sr.NotFound(func(w http.ResponseWriter, r *http.Request) {
			apierr.Write(w, apierr.NotFound())
		})
		sr.MethodNotAllowed(vs.methodNotAllowed)

		sr.Get("/", vs.handle(ActionList))
		sr.Post("/", vs.handle(ActionCreate))
		sr.Get(detail, vs.handle(ActionRetrieve))
		sr.Put(detail, vs.handle(ActionUpdate))
		sr.Patch(detail, vs.handle(ActionPartialUpdate))
		sr.Delete(detail, vs.handle(ActionDestroy))
	})
}

func (vs *ViewSet) handle(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vs.dispatch(action, w, r, chi.URLParam(r, vs.param))
	}
}

func (vs *ViewSet) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	vs.setAllow(w, subPath(r) != "")
	apierr.Write(w, apierr.MethodNotAllowed())
}

// subPath returns the request path below the mount point.
func subPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		return strings.Trim(rctx.RoutePath, "/")
	}
	return ""
}

// setAllow lists the methods the composition answers on a collection or
// detail path.
func (vs *ViewSet) setAllow(w http.ResponseWriter, detail bool) {
	var methods []string
	for _, rt := range vs.Routes("/") {
		isDetail := rt.Action != ActionList && rt.Action != ActionCreate
		if rt.Enabled && isDetail == detail {
			methods = append(methods, rt.Method)
		}
	}
	sort.Strings(methods)
	w.Header().Set("Allow", strings.Join(methods, ", "))
}

// dispatch runs action: capability check, permission check, handler, then
// error rendering, logging and metrics. Nothing touches the manager unless
// the composition provides the action and the permission is granted.
func (vs *ViewSet) dispatch(action Action, w http.ResponseWriter, r *http.Request, lookup string) {
	v := vs.view
	start := time.Now()
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

	if v.Observer != nil {
		v.Observer.RequestStarted()
	}

	defer func() {
		if rec := recover(); rec != nil {
			err := apierr.Internal(fmt.Errorf("panic in %s %s: %v", v.Name(), action, rec))
			if ww.Status() == 0 {
				vs.fail(ww, r, action, err)
			} else {
				v.Logger.Error().Err(err.Unwrap()).Msg("panic after response started")
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if v.Observer != nil {
			v.Observer.ObserveRequest(v.Name(), string(action), status, time.Since(start))
		}
		v.Logger.Debug().
			Str("model", v.Name()).
			Str("action", string(action)).
			Str("lookup", lookup).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("viewset request")
	}()

	h, ok := vs.handlers[action]
	if !ok {
		vs.setAllow(ww, lookup != "")
		vs.fail(ww, r, action, apierr.MethodNotAllowed())
		return
	}

	if err := permission.Require(r, v.Checker, v.Permissions[action]); err != nil {
		vs.fail(ww, r, action, err)
		return
	}

	if err := h(v, ww, r, lookup); err != nil {
		vs.fail(ww, r, action, err)
	}
}

func (vs *ViewSet) fail(w http.ResponseWriter, r *http.Request, action Action, err error) {
	e := apierr.Write(w, err)

	log := vs.view.Logger.Debug()
	if e.Kind == apierr.KindInternal {
		log = vs.view.Logger.Error()
	}
	log.Err(errors.Unwrap(e)).
		Str("model", vs.view.Name()).
		Str("action", string(action)).
		Str("kind", e.Kind.String()).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg(e.Message)
}
