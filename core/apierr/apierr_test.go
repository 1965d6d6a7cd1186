package apierr

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/crudkit/core/query"
	"github.com/artpar/crudkit/core/schema"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		err     *Error
		status  int
		message string
	}{
		{BadRequest("", nil), 400, "Bad request"},
		{Forbidden(""), 401, "Access denied"},
		{NotFound(), 404, "Not found"},
		{MethodNotAllowed(), 405, "Method not allowed"},
		{Internal(errors.New("boom")), 500, "Unknown Error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.Status())
		assert.Equal(t, tt.message, tt.err.Message)
	}

	assert.Equal(t, "User has no permission x", Forbidden("User has no permission x").Message)
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	nf := NotFound()
	assert.Same(t, nf, From(fmt.Errorf("wrapped: %w", nf)))

	verr := &schema.ValidationError{Fields: map[string][]string{"name": {"Missing data for required field."}}}
	e := From(verr)
	assert.Equal(t, KindBadRequest, e.Kind)
	assert.Equal(t, verr.Fields, e.Details)

	assert.Equal(t, KindNotFound, From(query.ErrNotFound).Kind)
	assert.Equal(t, KindNotFound, From(fmt.Errorf("get: %w", sql.ErrNoRows)).Kind)

	cause := errors.New("disk on fire")
	internal := From(cause)
	assert.Equal(t, KindInternal, internal.Kind)
	assert.Equal(t, "Unknown Error", internal.Message)
	assert.True(t, errors.Is(internal, cause))
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, &schema.ValidationError{Fields: map[string][]string{"age": {"Not a valid integer."}}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Bad request","error_details":{"age":["Not a valid integer."]}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	e := Write(rec, errors.New("secret connection string"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"error": "Unknown Error"}, body)
	assert.Contains(t, e.Error(), "secret connection string")
}
