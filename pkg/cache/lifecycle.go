package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type State string

const (
	StateNew        State = "new"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// Lifecycle serializes install and activate for one version. A successful install skips the
// waiting period and activates straight away when started through Start.
type Lifecycle struct {
	manager *Manager

	// opMu is held for a whole install or activate, mu only while state is read or written.
	opMu    sync.Mutex
	mu      sync.Mutex
	state   State
	lastErr error
}

func NewLifecycle(manager *Manager) *Lifecycle {
	return &Lifecycle{manager: manager, state: StateNew}
}

func (l *Lifecycle) State() (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.lastErr
}

func (l *Lifecycle) setState(state State, err error) {
	l.mu.Lock()
	l.state = state
	l.lastErr = err
	l.mu.Unlock()
}

func (l *Lifecycle) Version() string {
	return l.manager.Names.Version
}

func (l *Lifecycle) Start(ctx context.Context) error {
	if err := l.Install(ctx); err != nil {
		return err
	}
	_, err := l.Activate(ctx)
	return err
}

func (l *Lifecycle) Install(ctx context.Context) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	l.setState(StateInstalling, nil)
	if err := l.manager.Install(ctx); err != nil {
		l.setState(StateRedundant, err)
		return err
	}
	l.setState(StateInstalled, nil)
	return nil
}

func (l *Lifecycle) Activate(ctx context.Context) ([]string, error) {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	previous, _ := l.State()
	l.setState(StateActivating, nil)
	deleted, err := l.manager.Activate(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Activation failed")
		l.setState(previous, err)
		return deleted, err
	}
	l.setState(StateActivated, nil)
	return deleted, nil
}
