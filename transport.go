package throttle

import "net/http"

// transport implements http.RoundTripper and consults the registry before
// forwarding requests to the underlying transport.
type transport struct {
	registry *Registry
	base     http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.registry.checkURL(req.Context(), req.URL); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
