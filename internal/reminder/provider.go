package reminder

import "sync"

// Provider hands out one Manager for the life of the process, building it on
// first use so access is only requested once a tool needs it. A failed build
// is not cached; the next call tries again.
type Provider struct {
	factory func() (*Manager, error)

	mu      sync.Mutex
	manager *Manager
}

// NewProvider returns a Provider that builds its Manager with factory.
func NewProvider(factory func() (*Manager, error)) *Provider {
	return &Provider{factory: factory}
}

// Manager returns the shared Manager, building it if needed.
func (p *Provider) Manager() (*Manager, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.manager != nil {
		return p.manager, nil
	}
	m, err := p.factory()
	if err != nil {
		return nil, err
	}
	p.manager = m
	return m, nil
}
