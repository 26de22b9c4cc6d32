// Package clients tracks the open application windows served by the gateway so it can claim,
// focus and navigate them.
package clients

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

type CommandType string

const (
	CommandFocus    CommandType = "focus"
	CommandNavigate CommandType = "navigate"
	CommandOpen     CommandType = "open"
)

type Command struct {
	Type CommandType `json:"type"`
	URL  string      `json:"url,omitempty"`
}

type Window struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Version  string    `json:"version,omitempty"`
	LastSeen time.Time `json:"lastSeen"`
}

type Registry struct {
	mu       sync.Mutex
	windows  map[string]*Window
	commands map[string][]Command
	opens    []string

	// version is the last claimed version, new windows start under it
	version string
}

func NewRegistry() *Registry {
	return &Registry{
		windows:  make(map[string]*Window),
		commands: make(map[string][]Command),
	}
}

// Register adds a window, or refreshes it when the id is already known. An empty id gets a
// generated one.
func (r *Registry) Register(id, url string) Window {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.windows[id]
	if !exists {
		w = &Window{ID: id, Version: r.version}
		r.windows[id] = w
		log.Debug().Str("client", id).Str("url", url).Msg("Registered window")
	}
	w.URL = url
	w.LastSeen = time.Now().UTC()
	return *w
}

func (r *Registry) Heartbeat(id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.windows[id]
	if !exists {
		return e.ErrClientNotFound
	}
	if url != "" {
		w.URL = url
	}
	w.LastSeen = time.Now().UTC()
	return nil
}

// Unregister forgets a closed window and any commands it never polled.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.windows[id]; !exists {
		return e.ErrClientNotFound
	}
	delete(r.windows, id)
	delete(r.commands, id)
	return nil
}

// MatchAll returns every window, most recently seen first.
func (r *Registry) MatchAll() []Window {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Window, 0, len(r.windows))
	for _, w := range r.windows {
		result = append(result, *w)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastSeen.Equal(result[j].LastSeen) {
			return result[i].ID < result[j].ID
		}
		return result[i].LastSeen.After(result[j].LastSeen)
	})
	return result
}

func (r *Registry) enqueue(id string, cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.windows[id]; !exists {
		return e.ErrClientNotFound
	}
	r.commands[id] = append(r.commands[id], cmd)
	return nil
}

func (r *Registry) Focus(id string) error {
	return r.enqueue(id, Command{Type: CommandFocus})
}

func (r *Registry) Navigate(id, url string) error {
	return r.enqueue(id, Command{Type: CommandNavigate, URL: url})
}

// Open asks for a new window at url. The next window to poll receives it.
func (r *Registry) Open(url string) {
	r.mu.Lock()
	r.opens = append(r.opens, url)
	r.mu.Unlock()
}

// Poll hands out and clears the commands queued for the window, including any pending opens.
func (r *Registry) Poll(id string) ([]Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.windows[id]
	if !exists {
		return nil, e.ErrClientNotFound
	}
	w.LastSeen = time.Now().UTC()

	result := r.commands[id]
	delete(r.commands, id)
	for _, url := range r.opens {
		result = append(result, Command{Type: CommandOpen, URL: url})
	}
	r.opens = nil

	if result == nil {
		result = []Command{}
	}
	return result, nil
}

// Claim makes version the controller of every open window and returns how many were claimed.
func (r *Registry) Claim(version string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.version = version
	for _, w := range r.windows {
		w.Version = version
	}
	return len(r.windows)
}

// Prune drops windows that have not been seen for maxAge.
func (r *Registry) Prune(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)
	pruned := 0
	for id, w := range r.windows {
		if w.LastSeen.Before(cutoff) {
			delete(r.windows, id)
			delete(r.commands, id)
			pruned++
		}
	}
	return pruned
}
