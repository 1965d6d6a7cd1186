// Package permission is the boundary to the authorization collaborator.
// The toolkit asks one question per request: does the caller hold a named
// permission.
package permission

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/artpar/crudkit/core/apierr"
)

// Checker decides whether the request holds perm.
type Checker interface {
	Permits(r *http.Request, perm string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(r *http.Request, perm string) (bool, error)

// Permits calls f.
func (f CheckerFunc) Permits(r *http.Request, perm string) (bool, error) {
	return f(r, perm)
}

// AllowAll grants every permission.
var AllowAll = CheckerFunc(func(*http.Request, string) (bool, error) { return true, nil })

// Header grants the permissions listed, comma separated, in a request
// header set by a trusted upstream such as an API gateway.
type Header struct {
	Name string
}

// Permits implements Checker.
func (h Header) Permits(r *http.Request, perm string) (bool, error) {
	for _, p := range strings.Split(r.Header.Get(h.Name), ",") {
		if p = strings.TrimSpace(p); p == perm || p == "*" {
			return true, nil
		}
	}
	return false, nil
}

// Require returns a Forbidden error unless c permits perm.
// An empty perm is always granted.
func Require(r *http.Request, c Checker, perm string) error {
	if perm == "" || c == nil {
		return nil
	}
	ok, err := c.Permits(r, perm)
	if err != nil {
		return apierr.Internal(fmt.Errorf("check permission %s: %w", perm, err))
	}
	if !ok {
		return apierr.Forbidden(fmt.Sprintf("User has no permission %s", perm))
	}
	return nil
}
