package config

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// LoadFunc produces the configuration of a root scope on first use.
type LoadFunc func() (*Configuration, error)

// RegistryOption configures NewRegistry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report lazy loads.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Registry holds the active configuration of one execution scope. Inner
// scopes created with Fork see the configuration of their parents until they
// register their own, and never affect them.
type Registry struct {
	parent *Registry
	load   LoadFunc
	logger *zap.Logger

	mu     sync.Mutex
	filled bool
	cfg    *Configuration
	err    error
}

// NewRegistry returns a root scope that calls load at most once, on the first
// Get that finds no registered configuration.
func NewRegistry(load LoadFunc, opts ...RegistryOption) *Registry {
	r := &Registry{
		load:   load,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fork returns an inner scope of r.
func (r *Registry) Fork() *Registry {
	return &Registry{parent: r, logger: r.logger}
}

// Register installs cfg in this scope. It fails if the scope already holds a
// configuration, registered or lazily loaded.
func (r *Registry) Register(cfg *Configuration) error {
	if cfg == nil {
		return fmt.Errorf("register: nil configuration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled {
		return ErrAlreadyRegistered
	}
	r.filled = true
	r.cfg = cfg
	return nil
}

// Get returns the configuration of the nearest scope that holds one. When no
// scope does, the root scope loads it; concurrent callers share that single
// load and its result, including a failure.
func (r *Registry) Get() (*Configuration, error) {
	root := r
	for s := r; s != nil; s = s.parent {
		if cfg, filled, err := s.peek(); filled {
			return cfg, err
		}
		root = s
	}
	return root.loadOnce()
}

func (r *Registry) peek() (*Configuration, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg, r.filled, r.err
}

func (r *Registry) loadOnce() (*Configuration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled {
		return r.cfg, r.err
	}
	r.filled = true
	if r.load == nil {
		r.err = fmt.Errorf("%w: no loader for this scope", ErrMissingConfigFile)
		return nil, r.err
	}
	r.cfg, r.err = r.load()
	if r.cfg == nil && r.err == nil {
		r.err = fmt.Errorf("%w: loader returned no configuration", ErrMissingConfigFile)
	}
	if r.err != nil {
		r.cfg = nil
		r.logger.Error("configuration load failed", zap.Error(r.err))
	} else {
		r.logger.Info("configuration loaded",
			zap.String("primary_api_uri", r.cfg.APIURL()),
			zap.Int("admins", len(r.cfg.Admins)),
		)
	}
	return r.cfg, r.err
}

// Default is the process-wide root scope. It loads the file named by
// PUB_CONFIG in the environment captured at first use.
var Default = NewRegistry(func() (*Configuration, error) {
	e, err := CurrentEnv()
	if err != nil {
		return nil, err
	}
	return LoadFromEnv(e)
})

type registryContextKey struct{}

// WithRegistry returns a context whose scope is r.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryContextKey{}, r)
}

// FromContext returns the scope carried by ctx, or Default.
func FromContext(ctx context.Context) *Registry {
	if r, ok := ctx.Value(registryContextKey{}).(*Registry); ok && r != nil {
		return r
	}
	return Default
}

// NewContext returns a context with a new inner scope holding cfg. The scope
// of ctx is left untouched.
func NewContext(ctx context.Context, cfg *Configuration) (context.Context, error) {
	inner := FromContext(ctx).Fork()
	if err := inner.Register(cfg); err != nil {
		return ctx, err
	}
	return WithRegistry(ctx, inner), nil
}

// Active returns the configuration visible from ctx.
func Active(ctx context.Context) (*Configuration, error) {
	return FromContext(ctx).Get()
}
