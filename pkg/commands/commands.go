// Package commands maps voice transcripts to dashboard actions. Commands are checked in table
// order and the first match wins, so more specific phrases must come before general ones.
package commands

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/dashboard"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

type Result struct {
	Command string            `json:"command"`
	Message string            `json:"message"`
	Section dashboard.Section `json:"section,omitempty"`
}

type Handler func(ctx context.Context, c *dashboard.Controller, transcript string) (Result, error)

type Command struct {
	Name   string
	Match  func(transcript string) bool
	Handle Handler
}

// Dispatcher runs transcripts against an ordered command table.
type Dispatcher struct {
	Controller *dashboard.Controller
	Commands   []Command
}

func NewDispatcher(controller *dashboard.Controller) *Dispatcher {
	return &Dispatcher{Controller: controller, Commands: DefaultCommands()}
}

func containsAny(words ...string) func(string) bool {
	return func(transcript string) bool {
		for _, word := range words {
			if strings.Contains(transcript, word) {
				return true
			}
		}
		return false
	}
}

func containsAll(words ...string) func(string) bool {
	return func(transcript string) bool {
		for _, word := range words {
			if !strings.Contains(transcript, word) {
				return false
			}
		}
		return true
	}
}

func navigate(name string, section dashboard.Section, message string) Command {
	return Command{
		Name: name,
		Handle: func(ctx context.Context, c *dashboard.Controller, _ string) (Result, error) {
			c.Navigate(section)
			if err := c.LoadSection(ctx, section); err != nil {
				log.Debug().Err(err).Str("section", string(section)).Msg("Section loaded with errors")
			}
			return Result{Command: name, Message: message, Section: section}, nil
		},
	}
}

func DefaultCommands() []Command {
	dashboardCmd := navigate("dashboard", dashboard.SectionDashboard, "Showing dashboard")
	dashboardCmd.Match = containsAny("dashboard", "home")
	cameras := navigate("cameras", dashboard.SectionCameras, "Showing cameras")
	cameras.Match = containsAny("camera")
	alerts := navigate("alerts", dashboard.SectionAlerts, "Showing alerts")
	alerts.Match = containsAny("alert")
	analytics := navigate("analytics", dashboard.SectionAnalytics, "Showing analytics")
	analytics.Match = containsAny("analytic", "chart", "statistic")
	reports := navigate("reports", dashboard.SectionReports, "Showing reports")
	reports.Match = containsAny("report")
	upload := navigate("upload", dashboard.SectionUpload, "Ready to upload a video")
	upload.Match = containsAny("upload")

	return []Command{
		{
			Name:  "refresh",
			Match: containsAny("refresh", "reload"),
			Handle: func(ctx context.Context, c *dashboard.Controller, _ string) (Result, error) {
				if err := c.Refresh(ctx); err != nil {
					return Result{Command: "refresh", Message: "Refreshed with errors"}, nil
				}
				return Result{Command: "refresh", Message: "Dashboard refreshed"}, nil
			},
		},
		{
			Name:   "generate report",
			Match:  containsAll("generate", "report"),
			Handle: generateReport,
		},
		dashboardCmd,
		cameras,
		alerts,
		analytics,
		reports,
		upload,
		{
			Name:  "help",
			Match: containsAny("help", "what can"),
			Handle: func(_ context.Context, _ *dashboard.Controller, _ string) (Result, error) {
				return Result{Command: "help", Message: "Try: refresh, show dashboard, show cameras, show alerts, show analytics, show reports, upload video, generate report"}, nil
			},
		},
	}
}

// generateReport asks for a daily report covering the last seven days.
func generateReport(ctx context.Context, c *dashboard.Controller, _ string) (Result, error) {
	now := c.Now()
	request := dashboard.ReportRequest{
		StartDate:  now.AddDate(0, 0, -7).Format(dashboard.DateLayout),
		EndDate:    now.Format(dashboard.DateLayout),
		ReportType: "daily",
	}
	result, err := c.GenerateReport(ctx, request)
	if err != nil {
		return Result{}, err
	}
	c.Navigate(dashboard.SectionReports)
	return Result{Command: "generate report", Message: "Report generated: " + result.Filename, Section: dashboard.SectionReports}, nil
}

func Normalize(transcript string) string {
	return strings.Join(strings.Fields(strings.ToLower(transcript)), " ")
}

// Dispatch runs the first command whose predicate matches the transcript.
func (d *Dispatcher) Dispatch(ctx context.Context, transcript string) (Result, error) {
	normalized := Normalize(transcript)
	if normalized == "" {
		return Result{}, e.ErrNoTranscript
	}

	for _, cmd := range d.Commands {
		if !cmd.Match(normalized) {
			continue
		}
		start := time.Now()
		result, err := cmd.Handle(ctx, d.Controller, normalized)
		log.Info().Str("command", cmd.Name).Dur("took", time.Since(start)).Err(err).Msg("Voice command")
		return result, err
	}

	d.Controller.Toast(dashboard.ToastInfo, "Command not recognized: "+transcript)
	return Result{}, e.ErrUnknownCommand
}
