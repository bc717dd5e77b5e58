package chain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Dialer opens a Backend for an RPC URL.
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

// Pool owns the primary and fallback connections for one session.
// Once the fallback is taken it stays active until Reset starts a new read pass.
type Pool struct {
	endpoints Endpoints
	dial      Dialer
	logger    *zap.Logger

	mu           sync.Mutex
	primary      Backend
	fallback     Backend
	usedFallback bool
}

// NewPool builds a Pool. Connections are dialed lazily.
func NewPool(endpoints Endpoints, dial Dialer, logger *zap.Logger) *Pool {
	if dial == nil {
		dial = Dial
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{endpoints: endpoints, dial: dial, logger: logger}
}

// Endpoints returns the configured URLs.
func (p *Pool) Endpoints() Endpoints {
	return p.endpoints
}

// UsedFallback reports whether the session has switched to the fallback endpoint.
func (p *Pool) UsedFallback() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usedFallback
}

// Active returns the backend for the currently selected endpoint.
func (p *Pool) Active(ctx context.Context) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.usedFallback {
		return p.fallbackLocked(ctx)
	}
	if p.primary == nil {
		backend, err := p.dial(ctx, p.endpoints.Primary)
		if err != nil {
			return nil, fmt.Errorf("dial primary rpc: %w", err)
		}
		p.primary = backend
	}
	return p.primary, nil
}

// SwitchToFallback moves the session to the fallback endpoint. It reports false
// when the switch was already made, so callers retry through the fallback at most
// once per pass.
func (p *Pool) SwitchToFallback(ctx context.Context) (Backend, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.usedFallback {
		return nil, false, nil
	}
	p.usedFallback = true
	p.logger.Warn("switching to fallback rpc", zap.String("fallback", p.endpoints.Fallback))
	backend, err := p.fallbackLocked(ctx)
	if err != nil {
		return nil, true, err
	}
	return backend, true, nil
}

// Reset points the session back at the primary endpoint and re-arms the
// one-time fallback switch. Dialed connections are kept.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.usedFallback {
		p.logger.Info("returning to primary rpc", zap.String("primary", p.endpoints.Primary))
	}
	p.usedFallback = false
}

func (p *Pool) fallbackLocked(ctx context.Context) (Backend, error) {
	if p.fallback != nil {
		return p.fallback, nil
	}
	if p.endpoints.Fallback == "" {
		return nil, fmt.Errorf("no fallback rpc configured")
	}
	backend, err := p.dial(ctx, p.endpoints.Fallback)
	if err != nil {
		return nil, fmt.Errorf("dial fallback rpc: %w", err)
	}
	p.fallback = backend
	return backend, nil
}

// Close closes every dialed connection.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.primary != nil {
		p.primary.Close()
		p.primary = nil
	}
	if p.fallback != nil {
		p.fallback.Close()
		p.fallback = nil
	}
}
