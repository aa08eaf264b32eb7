package config

import (
	"sync"

	"slack-summariser/workspace"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// BackendFactory opens the API connection for a workspace.
type BackendFactory func(ws Workspace) workspace.Backend

func SlackBackend(ws Workspace) workspace.Backend {
	return slack.New(ws.Token)
}

// Registry hands out one client per workspace key, built on first use.
type Registry struct {
	cfg     *Config
	logger  *zap.Logger
	factory BackendFactory
	opts    []workspace.Option

	mu       sync.Mutex
	clients  map[string]*workspace.Client
	backends map[string]workspace.Backend
}

func NewRegistry(cfg *Config, factory BackendFactory, logger *zap.Logger, opts ...workspace.Option) *Registry {
	if factory == nil {
		factory = SlackBackend
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SummaryTimeout > 0 {
		opts = append([]workspace.Option{workspace.WithCallTimeout(cfg.SummaryTimeout)}, opts...)
	}
	return &Registry{
		cfg:      cfg,
		logger:   logger,
		factory:  factory,
		opts:     opts,
		clients:  make(map[string]*workspace.Client),
		backends: make(map[string]workspace.Backend),
	}
}

func (r *Registry) Config() *Config { return r.cfg }

// Client returns the client for key, or for the default workspace when key
// is empty.
func (r *Registry) Client(key string) (*workspace.Client, error) {
	ws, lookupError := r.cfg.Workspace(key)
	if lookupError != nil {
		return nil, lookupError
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[ws.Key]; ok {
		return client, nil
	}
	backend := r.backendLocked(ws)
	client := workspace.New(ws, backend, r.logger, r.opts...)
	r.clients[ws.Key] = client
	return client, nil
}

// Backend returns the raw API connection shared with the workspace's client.
func (r *Registry) Backend(key string) (workspace.Backend, error) {
	ws, lookupError := r.cfg.Workspace(key)
	if lookupError != nil {
		return nil, lookupError
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backendLocked(ws), nil
}

func (r *Registry) backendLocked(ws Workspace) workspace.Backend {
	if backend, ok := r.backends[ws.Key]; ok {
		return backend
	}
	backend := r.factory(ws)
	r.backends[ws.Key] = backend
	return backend
}

// Clients returns a client per workspace, or only the named one when key is
// set, in priority order. It never returns an empty list without an error.
func (r *Registry) Clients(key string) ([]*workspace.Client, error) {
	if len(r.cfg.workspaces) == 0 {
		return nil, ErrNoWorkspaces
	}
	if key != "" {
		client, clientError := r.Client(key)
		if clientError != nil {
			return nil, clientError
		}
		return []*workspace.Client{client}, nil
	}
	var clients []*workspace.Client
	for _, ws := range r.cfg.Workspaces() {
		client, clientError := r.Client(ws.Key)
		if clientError != nil {
			return nil, clientError
		}
		clients = append(clients, client)
	}
	return clients, nil
}
