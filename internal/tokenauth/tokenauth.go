// Package tokenauth authenticates requests to remote entropy services.
package tokenauth

import "net/http"

// Injector wraps an http.RoundTripper and sets an Authorization Bearer header
// on every request it forwards. An empty Token leaves requests untouched.
type Injector struct {
	Token string
	Next  http.RoundTripper
}

// Wrap returns a client that shares c's settings but authenticates with
// token. c may be nil.
func Wrap(c *http.Client, token string) *http.Client {
	var out http.Client
	if c != nil {
		out = *c
	}
	out.Transport = &Injector{Token: token, Next: out.Transport}
	return &out
}

func (t *Injector) next() http.RoundTripper {
	if t.Next != nil {
		return t.Next
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper. The request is cloned before the
// header is set, as RoundTrippers must not modify their input.
func (t *Injector) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.Token == "" {
		return t.next().RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.Token)
	return t.next().RoundTrip(r)
}
