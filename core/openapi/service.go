package openapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// DocPath is where the document is served.
const DocPath = "/openapi.json"

// swagName is the instance the document is registered under with swag.
const swagName = "crudkit"

// current is the document swag hands to the Swagger UI. swag allows a
// single registration per name, so every Service publishes through it.
var (
	current  atomic.Pointer[[]byte]
	register sync.Once
)

type swagDoc struct{}

func (swagDoc) ReadDoc() string {
	if doc := current.Load(); doc != nil {
		return string(*doc)
	}
	return "{}"
}

// Service renders a Generator once and serves the result.
type Service struct {
	gen *Generator
	doc atomic.Pointer[[]byte]
}

// NewService creates a service over gen.
func NewService(gen *Generator) *Service {
	return &Service{gen: gen}
}

// Refresh regenerates the document and publishes it to swag.
func (s *Service) Refresh() error {
	doc, err := json.Marshal(s.gen.Generate())
	if err != nil {
		return err
	}
	s.doc.Store(&doc)
	current.Store(&doc)
	register.Do(func() { swag.Register(swagName, swagDoc{}) })
	return nil
}

// Document returns the rendered document, generating it on first use.
func (s *Service) Document() ([]byte, error) {
	if doc := s.doc.Load(); doc != nil {
		return *doc, nil
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return *s.doc.Load(), nil
}

// ServeHTTP serves the JSON document.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Document()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(doc)
}

// Mount serves the document at DocPath and the Swagger UI under /swagger/.
func (s *Service) Mount(r chi.Router) {
	r.Get(DocPath, s.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(DocPath),
		httpSwagger.InstanceName(swagName),
	))
}
