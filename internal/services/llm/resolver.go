package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"news-temperature/internal/failure"
)

// Mode mirrors news.ModelMode without importing the news package.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// LocalLoader produces the local backend. It returns (nil, nil) when no
// local model is configured.
type LocalLoader func() (Backend, error)

// RemoteFactory builds a remote backend for one API key.
type RemoteFactory func(apiKey string) (Backend, error)

// Resolver picks the backend for a query. A successfully loaded local
// model is kept for later queries; a failed load is retried next time.
type Resolver struct {
	loadLocal LocalLoader
	newRemote RemoteFactory

	mu    sync.Mutex
	local Backend
}

// NewResolver wires the backend constructors. Either may be nil.
func NewResolver(loadLocal LocalLoader, newRemote RemoteFactory) *Resolver {
	return &Resolver{loadLocal: loadLocal, newRemote: newRemote}
}

// LocalModelLoader adapts LoadLocalBackend to a LocalLoader; an empty
// path means no local model.
func LocalModelLoader(path string) LocalLoader {
	return func() (Backend, error) {
		if path == "" {
			return nil, nil
		}
		return LoadLocalBackend(path)
	}
}

// OpenAIFactory adapts NewOpenAIClient to a RemoteFactory.
func OpenAIFactory(base OpenAIConfig) RemoteFactory {
	return func(apiKey string) (Backend, error) {
		cfg := base
		cfg.APIKey = apiKey
		return NewOpenAIClient(cfg)
	}
}

// Resolve returns one backend for the whole query.
//
// Local mode falls back to the remote backend when the local model is
// missing or fails to load and remoteKey is set. Without that fallback a
// missing model is NoBackendAvailable and a broken one is ModelLoadError.
// Remote mode requires remoteKey.
func (r *Resolver) Resolve(ctx context.Context, mode Mode, remoteKey string, caps []Capability) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.New(failure.Timeout, "resolve", err)
	}

	var (
		backend Backend
		err     error
	)
	switch mode {
	case ModeRemote:
		backend, err = r.remote(remoteKey)
	case ModeLocal:
		backend, err = r.localOrFallback(remoteKey)
	default:
		return nil, failure.Errorf(failure.NoBackendAvailable, "unknown model mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	if !Supports(backend, caps) {
		return nil, failure.Errorf(failure.NoBackendAvailable, "backend %s lacks %v", backend.Name(), caps)
	}
	return backend, nil
}

func (r *Resolver) localOrFallback(remoteKey string) (Backend, error) {
	local, loadErr := r.localBackend()
	if loadErr == nil && local != nil {
		return local, nil
	}

	if remoteKey != "" && r.newRemote != nil {
		log.Warn().Err(loadErr).Msg("Local model unavailable, falling back to remote backend")
		return r.remote(remoteKey)
	}

	if loadErr != nil {
		return nil, loadErr
	}
	return nil, failure.New(failure.NoBackendAvailable, "resolve",
		errors.New("no local model configured and no remote credential"))
}

func (r *Resolver) localBackend() (Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.local != nil {
		return r.local, nil
	}
	if r.loadLocal == nil {
		return nil, nil
	}

	backend, err := r.loadLocal()
	if err != nil {
		if failure.KindOf(err) != failure.ModelLoadError {
			err = failure.New(failure.ModelLoadError, "load local model", err)
		}
		return nil, err
	}
	if backend != nil {
		log.Info().Str("backend", backend.Name()).Msg("Local model loaded")
	}
	r.local = backend
	return backend, nil
}

func (r *Resolver) remote(apiKey string) (Backend, error) {
	if apiKey == "" {
		return nil, failure.New(failure.MissingCredential, "resolve", errors.New("remote backend needs an API key"))
	}
	if r.newRemote == nil {
		return nil, failure.New(failure.NoBackendAvailable, "resolve", errors.New("remote backend not configured"))
	}

	backend, err := r.newRemote(apiKey)
	if err != nil {
		if failure.KindOf(err) == failure.Unknown {
			err = failure.New(failure.NoBackendAvailable, "build remote backend", err)
		}
		return nil, fmt.Errorf("resolve remote: %w", err)
	}
	return backend, nil
}
