package view

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// EndpointParam is the path parameter an Endpoint reads the lookup from.
const EndpointParam = "id"

// verbs maps lower-case method names to the action they run on a detail
// path. Collection requests always run list.
var verbs = map[string]Action{
	"get":    ActionRetrieve,
	"post":   ActionCreate,
	"put":    ActionUpdate,
	"patch":  ActionPartialUpdate,
	"delete": ActionDestroy,
}

// actionUnknown labels requests whose method has no verb. No composition
// provides it, so dispatch answers 405.
const actionUnknown Action = "unknown"

// Endpoint is a single handler serving both the collection and the detail
// path of a model. Unlike a ViewSet it resolves the action from the method
// name at request time.
type Endpoint struct {
	vs *ViewSet
}

// NewEndpoint builds an endpoint over v with the capabilities in caps.
func NewEndpoint(v *GenericView, caps any) (*Endpoint, error) {
	vs, err := NewViewSet(v, caps)
	if err != nil {
		return nil, err
	}
	return &Endpoint{vs: vs}, nil
}

// ServeHTTP implements http.Handler.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lookup := chi.URLParam(r, EndpointParam)

	action, ok := verbs[strings.ToLower(r.Method)]
	switch {
	case !ok:
		action = actionUnknown
	case lookup == "":
		action = ActionList
	}
	e.vs.dispatch(action, w, r, lookup)
}

// Mount registers the endpoint for path and path/{id} on r.
func (e *Endpoint) Mount(r chi.Router, path string) {
	path = strings.TrimRight(path, "/")
	r.Handle(path, e)
	r.Handle(path+"/{"+EndpointParam+":"+e.vs.view.LookupPattern+"}", e)
}
