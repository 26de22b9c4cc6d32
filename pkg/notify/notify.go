// Package notify turns inbound push payloads into notifications and routes the user's response
// back to the open windows.
package notify

import (
	"encoding/json"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/clients"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/metrics"
)

const (
	DefaultTitle = "Security Alert"
	DefaultBody  = "New security event detected"
	DefaultTag   = "security-alert"
	DefaultURL   = "/"

	ActionView    = "view"
	ActionDismiss = "dismiss"
)

type Payload struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Tag                string `json:"tag"`
	URL                string `json:"url"`
	RequireInteraction bool   `json:"requireInteraction"`
}

type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

type Notification struct {
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Tag                string    `json:"tag"`
	URL                string    `json:"url"`
	RequireInteraction bool      `json:"requireInteraction"`
	Actions            []Action  `json:"actions"`
	ShownAt            time.Time `json:"shownAt"`
}

// ParsePayload never fails: a malformed payload is treated as empty and every missing field gets
// its default.
func ParsePayload(data []byte) Payload {
	var p Payload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			log.Debug().Err(err).Msg("Malformed push payload, using defaults")
			p = Payload{}
		}
	}

	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Body == "" {
		p.Body = DefaultBody
	}
	if p.Tag == "" {
		p.Tag = DefaultTag
	}
	if p.URL == "" {
		p.URL = DefaultURL
	}
	return p
}

func (p Payload) Notification() Notification {
	return Notification{
		Title:              p.Title,
		Body:               p.Body,
		Tag:                p.Tag,
		URL:                p.URL,
		RequireInteraction: p.RequireInteraction,
		Actions: []Action{
			{Action: ActionView, Title: "View"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
		ShownAt: time.Now().UTC(),
	}
}

// Center holds the notifications currently shown. A new notification replaces any shown one with
// the same tag.
type Center struct {
	mu    sync.Mutex
	shown map[string]Notification
}

func NewCenter() *Center {
	return &Center{shown: make(map[string]Notification)}
}

func (c *Center) Show(n Notification) {
	c.mu.Lock()
	c.shown[n.Tag] = n
	c.mu.Unlock()
}

func (c *Center) Get(tag string) (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, exists := c.shown[tag]
	return n, exists
}

func (c *Center) Close(tag string) {
	c.mu.Lock()
	delete(c.shown, tag)
	c.mu.Unlock()
}

// List returns the shown notifications, newest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]Notification, 0, len(c.shown))
	for _, n := range c.shown {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ShownAt.Equal(result[j].ShownAt) {
			return result[i].Tag < result[j].Tag
		}
		return result[i].ShownAt.After(result[j].ShownAt)
	})
	return result
}

// Windows is the part of the clients registry notification clicks need.
type Windows interface {
	MatchAll() []clients.Window
	Focus(id string) error
	Open(url string)
}

type ClickResult string

const (
	ClickFocused ClickResult = "focused"
	ClickOpened  ClickResult = "opened"
	ClickClosed  ClickResult = "closed"
)

type Dispatcher struct {
	Center  *Center
	Windows Windows

	// Enabled is false when the host has notifications turned off.
	Enabled bool
}

func NewDispatcher(center *Center, windows Windows, enabled bool) *Dispatcher {
	return &Dispatcher{Center: center, Windows: windows, Enabled: enabled}
}

func (d *Dispatcher) Push(data []byte) (Notification, error) {
	if !d.Enabled {
		metrics.Notifications.WithLabelValues("suppressed").Inc()
		return Notification{}, e.ErrNotificationsOff
	}

	n := ParsePayload(data).Notification()
	d.Center.Show(n)
	metrics.Notifications.WithLabelValues("shown").Inc()
	log.Info().Str("tag", n.Tag).Str("title", n.Title).Msg("Showing notification")
	return n, nil
}

// Click closes the notification and, for the view action, brings a window showing its URL to
// the front or opens one.
func (d *Dispatcher) Click(tag, action string) (ClickResult, error) {
	n, exists := d.Center.Get(tag)
	if !exists {
		return "", e.ErrNotFound
	}
	d.Center.Close(tag)

	if action != ActionView {
		metrics.Notifications.WithLabelValues("dismissed").Inc()
		return ClickClosed, nil
	}
	metrics.Notifications.WithLabelValues("viewed").Inc()

	for _, w := range d.Windows.MatchAll() {
		if sameTarget(w.URL, n.URL) {
			if err := d.Windows.Focus(w.ID); err != nil {
				return "", err
			}
			return ClickFocused, nil
		}
	}
	d.Windows.Open(n.URL)
	return ClickOpened, nil
}

// sameTarget compares path and query, ignoring the host when either side is relative.
func sameTarget(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	if ua.IsAbs() && ub.IsAbs() && ua.Host != ub.Host {
		return false
	}
	pa, pb := ua.Path, ub.Path
	if pa == "" {
		pa = "/"
	}
	if pb == "" {
		pb = "/"
	}
	return pa == pb && ua.RawQuery == ub.RawQuery
}
