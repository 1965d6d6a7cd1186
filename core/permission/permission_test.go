package permission

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/crudkit/core/apierr"
)

func TestRequire(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)

	assert.NoError(t, Require(r, AllowAll, "books.view"))
	assert.NoError(t, Require(r, nil, "books.view"))

	deny := CheckerFunc(func(*http.Request, string) (bool, error) { return false, nil })
	assert.NoError(t, Require(r, deny, ""), "empty permission is always granted")

	err := Require(r, deny, "books.edit")
	var e *apierr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, apierr.KindForbidden, e.Kind)
	assert.Equal(t, 401, e.Status())
	assert.Equal(t, "User has no permission books.edit", e.Message)

	broken := CheckerFunc(func(*http.Request, string) (bool, error) { return false, errors.New("ldap down") })
	err = Require(r, broken, "books.edit")
	require.True(t, errors.As(err, &e))
	assert.Equal(t, apierr.KindInternal, e.Kind)
}

func TestHeader(t *testing.T) {
	h := Header{Name: "X-Permissions"}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Permissions", "books.view, books.edit")

	ok, err := h.Permits(r, "books.edit")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = h.Permits(r, "books.delete")
	assert.False(t, ok)

	r.Header.Set("X-Permissions", "*")
	ok, _ = h.Permits(r, "anything")
	assert.True(t, ok)
}
