package noip

import (
	"net/url"
	"strings"
)

// Query parameter names understood by the update endpoint.
const (
	ParamHostname = "hostname"
	ParamMyIP     = "myip"
	ParamOffline  = "offline"
)

// Query is an ordered set of query string parameters.
// Parameters keep their insertion order; a name added more than once has its
// values joined with a comma.
type Query struct {
	names  []string
	values map[string]string
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{values: make(map[string]string)}
}

// BuildQuery builds the query for one update request.
//
// hostnames is a comma separated list and is required. Splitting is literal:
// an empty string produces a single empty hostname. myIP and offline are
// only added when non-nil.
func BuildQuery(hostnames *string, myIP *string, offline *bool) (*Query, error) {
	if hostnames == nil {
		return nil, argumentMissing("hostnames")
	}

	q := NewQuery()
	q.Add(ParamHostname, strings.Split(*hostnames, ",")...)
	if myIP != nil {
		q.Add(ParamMyIP, *myIP)
	}
	if offline != nil {
		if *offline {
			q.Add(ParamOffline, "YES")
		} else {
			q.Add(ParamOffline, "NO")
		}
	}
	return q, nil
}

// Add appends values to the named parameter, creating it if needed.
// Each value is percent-encoded on its own before being joined.
func (q *Query) Add(name string, values ...string) {
	for _, v := range values {
		encoded := escape(v)
		if existing, ok := q.values[name]; ok {
			q.values[name] = existing + "," + encoded
			continue
		}
		q.names = append(q.names, name)
		q.values[name] = encoded
	}
}

// Remove deletes the named parameter and reports whether it was present.
func (q *Query) Remove(name string) bool {
	if _, ok := q.values[name]; !ok {
		return false
	}
	delete(q.values, name)
	for i, n := range q.names {
		if n == name {
			q.names = append(q.names[:i], q.names[i+1:]...)
			break
		}
	}
	return true
}

// Reset removes every parameter.
func (q *Query) Reset() {
	q.names = q.names[:0]
	clear(q.values)
}

// Get returns the encoded value of the named parameter.
func (q *Query) Get(name string) (string, bool) {
	v, ok := q.values[name]
	return v, ok
}

// Len returns the number of distinct parameters.
func (q *Query) Len() int {
	return len(q.names)
}

// String returns the encoded query string as it appears in a URL, including
// the leading '?'. An empty query encodes to "".
func (q *Query) String() string {
	if len(q.names) == 0 {
		return ""
	}

	var b strings.Builder
	for i, name := range q.names {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(q.values[name])
	}
	return b.String()
}

// escape percent-encodes everything outside the RFC 3986 unreserved set.
// url.QueryEscape differs only in writing spaces as '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
