package httputil

import (
	"net/http"
	"net/url"
)

// redact returns the request URL without user info, safe for logging.
func redact(req *http.Request) *url.URL {
	u := *req.URL
	if u.User != nil {
		u.User = url.User("redacted")
	}
	return &u
}
