package config

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func countingLoader(calls *atomic.Int32, cfg *Configuration, err error) LoadFunc {
	return func() (*Configuration, error) {
		calls.Add(1)
		return cfg, err
	}
}

func TestRegistryLoadsOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	registry := NewRegistry(countingLoader(&calls, ForTest(TestOptions{}), nil), WithLogger(zaptest.NewLogger(t)))

	const workers = 32
	results := make([]*Configuration, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			cfg, err := registry.Get()
			if err != nil {
				t.Errorf("Get returned error: %v", err)
				return
			}
			results[i] = cfg
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, cfg := range results {
		require.Same(t, results[0], cfg)
	}
}

func TestRegistryCachesLoadFailure(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	registry := NewRegistry(countingLoader(&calls, nil, boom))

	_, err := registry.Get()
	require.ErrorIs(t, err, boom)
	_, err = registry.Get()
	require.ErrorIs(t, err, boom)
	require.Equal(t, int32(1), calls.Load())
}

func TestRegistryRegisterPreemptsLoad(t *testing.T) {
	var calls atomic.Int32
	registry := NewRegistry(countingLoader(&calls, nil, errors.New("must not load")))
	want := ForTest(TestOptions{})

	require.NoError(t, registry.Register(want))
	got, err := registry.Get()
	require.NoError(t, err)
	require.Same(t, want, got)
	require.Zero(t, calls.Load())

	require.ErrorIs(t, registry.Register(ForTest(TestOptions{})), ErrAlreadyRegistered)
}

func TestRegistryRegisterAfterLoadFails(t *testing.T) {
	var calls atomic.Int32
	registry := NewRegistry(countingLoader(&calls, ForTest(TestOptions{}), nil))

	_, err := registry.Get()
	require.NoError(t, err)
	require.ErrorIs(t, registry.Register(ForTest(TestOptions{})), ErrAlreadyRegistered)
}

func TestRegistryRegisterRejectsNil(t *testing.T) {
	registry := NewRegistry(nil)
	require.Error(t, registry.Register(nil))
}

func TestRegistryWithoutLoader(t *testing.T) {
	_, err := NewRegistry(nil).Get()
	require.ErrorIs(t, err, ErrMissingConfigFile)
}

func TestRegistryInnerScopeIsolation(t *testing.T) {
	var calls atomic.Int32
	outerCfg := ForTest(TestOptions{})
	outer := NewRegistry(countingLoader(&calls, outerCfg, nil))

	before, err := outer.Get()
	require.NoError(t, err)

	inner := outer.Fork()
	inheritedCfg, err := inner.Get()
	require.NoError(t, err)
	require.Same(t, outerCfg, inheritedCfg)

	innerCfg := FakePubServer(8080, "http://localhost:8081")
	require.NoError(t, inner.Register(innerCfg))

	got, err := inner.Get()
	require.NoError(t, err)
	require.Same(t, innerCfg, got)

	after, err := outer.Get()
	require.NoError(t, err)
	require.Same(t, before, after)
	require.Equal(t, int32(1), calls.Load())
}

func TestRegistryConcurrentScopes(t *testing.T) {
	var calls atomic.Int32
	outerCfg := ForTest(TestOptions{})
	outer := NewRegistry(countingLoader(&calls, outerCfg, nil))
	cached, err := outer.Get()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			inner := outer.Fork()
			cfg := FakePubServer(9000+i, "http://localhost:1")
			if err := inner.Register(cfg); err != nil {
				t.Errorf("Register returned error: %v", err)
				return
			}
			if got, _ := inner.Get(); got != cfg {
				t.Errorf("inner scope returned a foreign configuration")
			}
		}()
		go func() {
			defer wg.Done()
			if got, _ := outer.Get(); got != cached {
				t.Errorf("outer scope observed an inner registration")
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), calls.Load())
}

func TestContextScopes(t *testing.T) {
	var calls atomic.Int32
	rootCfg := ForTest(TestOptions{})
	root := NewRegistry(countingLoader(&calls, rootCfg, nil))
	ctx := WithRegistry(context.Background(), root)

	got, err := Active(ctx)
	require.NoError(t, err)
	require.Same(t, rootCfg, got)

	override := FakePubServer(8080, "http://localhost:8081")
	innerCtx, err := NewContext(ctx, override)
	require.NoError(t, err)

	got, err = Active(innerCtx)
	require.NoError(t, err)
	require.Same(t, override, got)

	got, err = Active(ctx)
	require.NoError(t, err)
	require.Same(t, rootCfg, got)

	nested, err := NewContext(innerCtx, ForTest(TestOptions{StorageBaseURL: "http://localhost:2"}))
	require.NoError(t, err)
	got, err = Active(nested)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:2", got.StorageBaseURL)
}

func TestFromContextDefaultsToProcessRegistry(t *testing.T) {
	require.Same(t, Default, FromContext(context.Background()))
}
