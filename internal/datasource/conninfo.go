package datasource

import (
	"maps"
	"net/url"
	"strconv"

	"github.com/roach88/dataccess/internal/errs"
)

// ConnInfo is the flat key/value map a driver reads its connection
// parameters from. Keys are driver specific.
type ConnInfo map[string]string

// ParseConnInfo reads a "k=v&k=v" URL-encoded string. Repeated keys keep
// their last value.
func ParseConnInfo(s string) (ConnInfo, error) {
	q, err := url.ParseQuery(s)
	if err != nil {
		return nil, errs.Wrap(errs.CodeConfiguration, err, "connection info %q", s)
	}
	info := make(ConnInfo, len(q))
	for k, vs := range q {
		info[k] = vs[len(vs)-1]
	}
	return info, nil
}

// String encodes the map in "k=v&k=v" form with keys sorted.
func (c ConnInfo) String() string {
	q := make(url.Values, len(c))
	for k, v := range c {
		q.Set(k, v)
	}
	return q.Encode()
}

// Clone returns a copy of c.
func (c ConnInfo) Clone() ConnInfo {
	if c == nil {
		return ConnInfo{}
	}
	return maps.Clone(c)
}

// Get returns the value of key, or def when it is absent or empty.
func (c ConnInfo) Get(key, def string) string {
	if v, ok := c[key]; ok && v != "" {
		return v
	}
	return def
}

// Int returns key parsed as an integer, or def when it is absent.
func (c ConnInfo) Int(key string, def int) (int, error) {
	v, ok := c[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.Wrap(errs.CodeConfiguration, err, "connection parameter %q", key)
	}
	return n, nil
}

// Bool returns key parsed as a boolean, or def when it is absent.
func (c ConnInfo) Bool(key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errs.Wrap(errs.CodeConfiguration, err, "connection parameter %q", key)
	}
	return b, nil
}

// Require returns the value of key or a CONFIGURATION error naming it.
func (c ConnInfo) Require(key string) (string, error) {
	v, ok := c[key]
	if !ok || v == "" {
		return "", errs.Configuration("missing connection parameter %q", key)
	}
	return v, nil
}

// Options is an opaque map of backend-specific settings passed to DDL and
// bulk operations. Unknown keys are ignored.
type Options map[string]string
