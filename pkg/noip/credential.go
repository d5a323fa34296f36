package noip

import (
	"encoding/base64"
	"net/url"
)

// ProductTag prefixes the User-Agent of every update request.
// The provider uses it to identify the client, so it must not change.
const ProductTag = "KellyStuard NoIp Docker/1.0"

// SchemeBasic is the HTTP authentication scheme used by the update endpoint.
const SchemeBasic = "Basic"

// DefaultUpdateURL is No-IP's public update endpoint.
const DefaultUpdateURL = "https://dynupdate.no-ip.com/nic/update"

// Credential is the identity attached to every update request.
type Credential struct {
	// BaseURL is the update endpoint every request is sent to.
	BaseURL *url.URL

	// UserAgent identifies the client and the account owner.
	UserAgent string

	// Scheme and Parameter form the Authorization header.
	Scheme    string
	Parameter string
}

// NewCredential derives the request identity for an account.
// updateURL must be absolute; username and password must be non-empty.
func NewCredential(updateURL *url.URL, username, password string) (*Credential, error) {
	if updateURL == nil {
		return nil, argumentMissing("updateURL")
	}
	if !updateURL.IsAbs() || updateURL.Host == "" {
		return nil, argumentInvalid("updateURL", "must be an absolute URL")
	}
	if username == "" {
		return nil, argumentMissing("username")
	}
	if password == "" {
		return nil, argumentMissing("password")
	}

	base := *updateURL
	return &Credential{
		BaseURL:   &base,
		UserAgent: ProductTag + " " + username,
		Scheme:    SchemeBasic,
		Parameter: base64.StdEncoding.EncodeToString(asciiBytes(username + ":" + password)),
	}, nil
}

// Authorization returns the value of the Authorization header.
func (c *Credential) Authorization() string {
	return c.Scheme + " " + c.Parameter
}

// asciiBytes encodes s as ASCII, replacing anything outside 7-bit range
// with '?'.
func asciiBytes(s string) []byte {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0x7f {
			r = '?'
		}
		b = append(b, byte(r))
	}
	return b
}
