package federation

import (
	"context"
	"fmt"
	"sort"

	serrors "github.com/pilab-dev/shadow-auth/errors"
	"golang.org/x/oauth2"
)

// Registry maps provider identifiers to their configuration and extractor.
// It is populated at startup and read-only afterwards.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry creates a registry holding providers.
func NewRegistry(providers ...*Provider) *Registry {
	r := &Registry{providers: make(map[string]*Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p *Provider) {
	r.providers[p.ID] = p
}

// Provider returns the provider registered under id. Unknown ids fail with a BadRequest.
func (r *Registry) Provider(id string) (*Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, serrors.NewBadRequest(fmt.Sprintf("Login with %s is not supported", id))
	}
	return p, nil
}

// IDs lists the registered provider identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Extract applies the extractor of providerID to attributes.
func (r *Registry) Extract(providerID string, attributes map[string]any) (ProviderUserInfo, error) {
	p, err := r.Provider(providerID)
	if err != nil {
		return ProviderUserInfo{}, err
	}
	return p.Extract(attributes), nil
}

// FetchAttributes has the AttributeFetcher signature and calls the user info endpoint of providerID.
func (r *Registry) FetchAttributes(ctx context.Context, providerID string, token *oauth2.Token) (map[string]any, error) {
	p, err := r.Provider(providerID)
	if err != nil {
		return nil, err
	}
	return p.FetchAttributes(ctx, token)
}

var _ AttributeFetcher = (*Registry)(nil).FetchAttributes
