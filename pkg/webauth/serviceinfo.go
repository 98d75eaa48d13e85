package webauth

import (
	"context"
	"sync"

	"github.com/healthvault/sdk/pkg/platform"
)

// DefinitionSource fetches the service definition. *platform.Client
// satisfies it.
type DefinitionSource interface {
	GetServiceDefinition(ctx context.Context) (*platform.ServiceInfo, error)
}

// ServiceInfoProvider memoizes the service definition. Concurrent cold
// starts collapse to one network call; the cached value is served until
// Invalidate.
type ServiceInfoProvider struct {
	source DefinitionSource

	cacheMu sync.RWMutex
	cached  *platform.ServiceInfo

	// fetchMu is held across the network call so only one caller fetches.
	fetchMu sync.Mutex
}

// NewServiceInfoProvider creates a provider backed by source.
func NewServiceInfoProvider(source DefinitionSource) *ServiceInfoProvider {
	return &ServiceInfoProvider{source: source}
}

// Get returns the cached service definition, fetching it on first use.
func (p *ServiceInfoProvider) Get(ctx context.Context) (*platform.ServiceInfo, error) {
	p.cacheMu.RLock()
	cached := p.cached
	p.cacheMu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()

	// Another caller may have fetched while we waited.
	p.cacheMu.RLock()
	cached = p.cached
	p.cacheMu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	info, err := p.source.GetServiceDefinition(ctx)
	if err != nil {
		return nil, err
	}
	p.cacheMu.Lock()
	p.cached = info
	p.cacheMu.Unlock()
	return info, nil
}

// Invalidate drops the cached definition; the next Get fetches again.
func (p *ServiceInfoProvider) Invalidate() {
	p.cacheMu.Lock()
	p.cached = nil
	p.cacheMu.Unlock()
}
