package tts

import "sync"

// Provider hands out one process-wide Dispatcher, built lazily on first
// use. The application's composition root owns the Provider.
type Provider struct {
	mu    sync.Mutex
	build func() *Dispatcher
	built bool
	d     *Dispatcher
}

// NewProvider returns a Provider that calls build at most once.
func NewProvider(build func() *Dispatcher) *Provider {
	return &Provider{build: build}
}

// Get returns the dispatcher, building it on the first call.
func (p *Provider) Get() *Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.built {
		p.d = p.build()
		p.built = true
	}
	return p.d
}

// Close releases the dispatcher if it was ever built.
func (p *Provider) Close() error {
	p.mu.Lock()
	d := p.d
	p.mu.Unlock()

	if d == nil {
		return nil
	}
	return d.Close()
}
