package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"GopherView/internal/envmap"
	"GopherView/internal/logger"
	"GopherView/internal/scene"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// loadConcurrency lets the model and the environment decode side by side.
const loadConcurrency = 2

// ErrLoaderClosed is reported for loads requested after Close.
var ErrLoaderClosed = errors.New("loader closed")

// Result is the single value delivered by an asynchronous load.
type Result[T any] struct {
	Path  string
	Value T
	Err   error
}

type ModelDecoder func(path string) (*scene.Node, error)

type EnvironmentDecoder func(path string) (*envmap.Image, error)

type Option func(*Loader)

func WithModelDecoder(decode ModelDecoder) Option {
	return func(l *Loader) {
		l.decodeModel = decode
	}
}

func WithEnvironmentDecoder(decode EnvironmentDecoder) Option {
	return func(l *Loader) {
		l.decodeEnvironment = decode
	}
}

// Loader runs asset decoding on a worker pool. Each load hands back a
// buffered channel that receives exactly one Result.
type Loader struct {
	decodeModel       ModelDecoder
	decodeEnvironment EnvironmentDecoder

	pool   pond.Pool
	mu     sync.Mutex
	closed bool
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		decodeModel:       LoadModel,
		decodeEnvironment: envmap.DecodeFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pool = pond.NewPool(loadConcurrency)
	return l
}

// submit runs work on the pool and delivers its outcome on the returned
// channel. Panics in work are reported as errors.
func submit[T any](l *Loader, ctx context.Context, kind, path string, work func() (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		out <- Result[T]{Path: path, Err: fmt.Errorf("%s %s: %w", kind, path, ErrLoaderClosed)}
		return out
	}

	l.pool.Submit(func() {
		start := time.Now()
		res := Result[T]{Path: path}
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("%s %s: panic: %v", kind, path, r)
			}
			if res.Err != nil {
				logger.Log.Error("Asset load failed",
					zap.String("kind", kind),
					zap.String("path", path),
					zap.Error(res.Err))
			} else {
				logger.Log.Info("Asset loaded",
					zap.String("kind", kind),
					zap.String("path", path),
					zap.Duration("elapsed", time.Since(start)))
			}
			out <- res
		}()

		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("%s %s: %w", kind, path, err)
			return
		}
		value, err := work()
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			res.Err = fmt.Errorf("%s %s: %w", kind, path, err)
			return
		}
		res.Value = value
	})
	return out
}

// LoadModel decodes the model at path into a node tree.
func (l *Loader) LoadModel(ctx context.Context, path string) <-chan Result[*scene.Node] {
	return submit(l, ctx, "model", path, func() (*scene.Node, error) {
		return l.decodeModel(path)
	})
}

// LoadEnvironment decodes the equirectangular image at path and prefilters it
// with gen. The decoded image and the generator are disposed once the map is
// built, whether or not that succeeded.
func (l *Loader) LoadEnvironment(ctx context.Context, path string, gen *envmap.Generator) <-chan Result[*envmap.Map] {
	return submit(l, ctx, "environment", path, func() (*envmap.Map, error) {
		defer gen.Dispose()

		img, err := l.decodeEnvironment(path)
		if err != nil {
			return nil, err
		}
		defer img.Dispose()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return gen.FromEquirectangular(img)
	})
}

// Close stops accepting loads and waits for running ones to finish.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.pool.StopAndWait()
}
