package server

import (
	"context"
	"errors"
	"sync"

	"github.com/michaelbrown/envop/internal/environ"
	"github.com/michaelbrown/envop/internal/operator"
)

// OpenFunc opens the environment with the given name.
type OpenFunc func(name string) (*environ.Environment, error)

// EnvironmentPool opens each environment on first request and keeps it for the
// server's lifetime, so a sandbox is created at most once.
type EnvironmentPool struct {
	mu   sync.Mutex
	envs map[string]*environ.Environment
	open OpenFunc
}

// NewEnvironmentPool creates an empty pool that opens environments with open.
func NewEnvironmentPool(open OpenFunc) *EnvironmentPool {
	return &EnvironmentPool{
		envs: make(map[string]*environ.Environment),
		open: open,
	}
}

// Get returns an opened environment if it exists.
func (p *EnvironmentPool) Get(name string) (*environ.Environment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	env, ok := p.envs[name]
	return env, ok
}

// GetOrOpen returns the environment for name, opening it if needed. Opening is
// cheap: a sandbox is only started by its first operation.
func (p *EnvironmentPool) GetOrOpen(name string) (*environ.Environment, error) {
	name, err := operator.ParseEnv(name)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if env, ok := p.envs[name]; ok {
		return env, nil
	}
	env, err := p.open(name)
	if err != nil {
		return nil, err
	}
	p.envs[name] = env
	return env, nil
}

// States reports the state of every opened environment.
func (p *EnvironmentPool) States() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make(map[string]string, len(p.envs))
	for name, env := range p.envs {
		states[name] = env.State()
	}
	return states
}

// CloseAll closes and forgets every opened environment.
func (p *EnvironmentPool) CloseAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for name, env := range p.envs {
		if err := env.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		delete(p.envs, name)
	}
	return errors.Join(errs...)
}
