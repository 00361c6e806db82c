// Package streamauth decodes the opaque X-Stream-Auth header used to carry
// upstream credentials. Credentials travel in this dedicated header, never
// in client-visible query parameters.
package streamauth

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Header is the request header carrying base64-encoded "user:pass"
// upstream credentials.
const Header = "X-Stream-Auth"

// ErrMalformed is returned when the header value is not base64 "user:pass".
var ErrMalformed = errors.New("malformed stream auth header")

// Decode parses a raw X-Stream-Auth header value into its username and
// password. An empty value yields ok=false with no error so callers can
// treat the header as optional.
func Decode(value string) (user, pass string, ok bool, err error) {
	if value == "" {
		return "", "", false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", "", false, ErrMalformed
	}
	user, pass, found := strings.Cut(string(raw), ":")
	if !found {
		return "", "", false, ErrMalformed
	}
	return user, pass, true, nil
}
