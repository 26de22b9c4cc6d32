package notify

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/terrycain/offline-cache-gateway/pkg/clients"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected Payload
	}{
		{"empty", "", Payload{Title: DefaultTitle, Body: DefaultBody, Tag: DefaultTag, URL: DefaultURL}},
		{"malformed", "{not json", Payload{Title: DefaultTitle, Body: DefaultBody, Tag: DefaultTag, URL: DefaultURL}},
		{"partial", `{"title":"Person detected"}`, Payload{Title: "Person detected", Body: DefaultBody, Tag: DefaultTag, URL: DefaultURL}},
		{
			"full",
			`{"title":"Anomaly","body":"Camera 3","tag":"cam-3","url":"/alerts","requireInteraction":true}`,
			Payload{Title: "Anomaly", Body: "Camera 3", Tag: "cam-3", URL: "/alerts", RequireInteraction: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, ParsePayload([]byte(tt.data))); diff != "" {
				t.Fatalf("ParsePayload() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPushReplacesByTag(t *testing.T) {
	d := NewDispatcher(NewCenter(), clients.NewRegistry(), true)

	if _, err := d.Push([]byte(`{"title":"first"}`)); err != nil {
		t.Fatal(err)
	}
	n, err := d.Push([]byte(`{"title":"second"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(n.Actions) != 2 || n.Actions[0].Action != ActionView || n.Actions[1].Action != ActionDismiss {
		t.Fatalf("unexpected actions %v", n.Actions)
	}

	shown := d.Center.List()
	if len(shown) != 1 || shown[0].Title != "second" {
		t.Fatalf("expected only the replacement to be shown, got %v", shown)
	}
}

func TestPushDisabled(t *testing.T) {
	d := NewDispatcher(NewCenter(), clients.NewRegistry(), false)
	if _, err := d.Push(nil); !errors.Is(err, e.ErrNotificationsOff) {
		t.Fatalf("expected ErrNotificationsOff, got %v", err)
	}
	if len(d.Center.List()) != 0 {
		t.Fatal("notification shown while disabled")
	}
}

func TestClickView(t *testing.T) {
	registry := clients.NewRegistry()
	registry.Register("dash", "http://gateway.test/")
	registry.Register("alerts", "http://gateway.test/alerts")
	d := NewDispatcher(NewCenter(), registry, true)

	if _, err := d.Push([]byte(`{"tag":"cam-1","url":"/alerts"}`)); err != nil {
		t.Fatal(err)
	}
	result, err := d.Click("cam-1", ActionView)
	if err != nil {
		t.Fatal(err)
	}
	if result != ClickFocused {
		t.Fatalf("expected focus, got %s", result)
	}
	commands, _ := registry.Poll("alerts")
	if diff := cmp.Diff([]clients.Command{{Type: clients.CommandFocus}}, commands); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
	if _, exists := d.Center.Get("cam-1"); exists {
		t.Fatal("notification not closed after click")
	}
}

func TestClickViewOpensWindow(t *testing.T) {
	registry := clients.NewRegistry()
	registry.Register("dash", "http://gateway.test/")
	d := NewDispatcher(NewCenter(), registry, true)

	if _, err := d.Push([]byte(`{"url":"/reports"}`)); err != nil {
		t.Fatal(err)
	}
	result, err := d.Click(DefaultTag, ActionView)
	if err != nil {
		t.Fatal(err)
	}
	if result != ClickOpened {
		t.Fatalf("expected open, got %s", result)
	}
	commands, _ := registry.Poll("dash")
	if diff := cmp.Diff([]clients.Command{{Type: clients.CommandOpen, URL: "/reports"}}, commands); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestClickDismiss(t *testing.T) {
	registry := clients.NewRegistry()
	registry.Register("dash", "/")
	d := NewDispatcher(NewCenter(), registry, true)

	if _, err := d.Push(nil); err != nil {
		t.Fatal(err)
	}
	result, err := d.Click(DefaultTag, ActionDismiss)
	if err != nil || result != ClickClosed {
		t.Fatalf("expected close, got %s (%v)", result, err)
	}
	commands, _ := registry.Poll("dash")
	if len(commands) != 0 {
		t.Fatalf("dismiss produced commands %v", commands)
	}

	if _, err = d.Click(DefaultTag, ActionView); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for closed notification, got %v", err)
	}
}
