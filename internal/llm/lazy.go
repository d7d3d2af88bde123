package llm

import (
	"context"
	"errors"
	"sync"
)

// LazyProvider builds its underlying provider on first use. A successful
// build or a construction failure is remembered; failures are returned
// from every call as *ErrConfiguration. Builds that end in a context
// error are not remembered and run again on the next call.
type LazyProvider struct {
	name  string
	build func(ctx context.Context) (Provider, error)

	mu    sync.Mutex
	built bool
	p     Provider
	err   error
}

// NewLazyProvider returns a handle that calls build on the first Generate.
// name labels the provider in configuration errors.
func NewLazyProvider(name string, build func(ctx context.Context) (Provider, error)) *LazyProvider {
	return &LazyProvider{name: name, build: build}
}

// Resolve constructs the provider if needed and returns it. The build
// runs detached from ctx cancellation so one abandoned request cannot
// poison later ones.
func (l *LazyProvider) Resolve(ctx context.Context) (Provider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.built {
		return l.p, l.err
	}

	p, err := l.build(context.WithoutCancel(ctx))
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, err
	}
	if err != nil {
		var cfgErr *ErrConfiguration
		if !errors.As(err, &cfgErr) {
			err = &ErrConfiguration{Provider: l.name, Err: err}
		}
	}
	l.built = true
	l.p, l.err = p, err
	return l.p, l.err
}

func (l *LazyProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	p, err := l.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return p.Generate(ctx, req)
}

// ModelID reports the model once resolved, else the provider name.
func (l *LazyProvider) ModelID() string {
	l.mu.Lock()
	p := l.p
	l.mu.Unlock()
	if p != nil {
		return p.ModelID()
	}
	return l.name
}
