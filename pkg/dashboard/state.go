package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/utils"
)

type Section string

const (
	SectionDashboard Section = "dashboard"
	SectionCameras   Section = "cameras"
	SectionAlerts    Section = "alerts"
	SectionAnalytics Section = "analytics"
	SectionReports   Section = "reports"
	SectionUpload    Section = "upload"
)

var Sections = []Section{SectionDashboard, SectionCameras, SectionAlerts, SectionAnalytics, SectionReports, SectionUpload}

func ParseSection(value string) (Section, error) {
	for _, section := range Sections {
		if string(section) == value {
			return section, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", value)
}

type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

type Toast struct {
	Kind    ToastKind
	Message string
	At      time.Time
}

const maxToasts = 5

// panel names used for the per-panel error and stale flags
const (
	panelStats     = "stats"
	panelAlerts    = "alerts"
	panelCameras   = "cameras"
	panelAnalytics = "analytics"
	panelReports   = "reports"
)

// AppState is the whole mutable UI state. Only the Controller writes to it.
type AppState struct {
	Section     Section
	Stats       Stats
	Alerts      []Alert
	Cameras     []Camera
	Activity    Activity
	Events      EventDistribution
	Heatmap     *Heatmap
	Reports     []Report
	Errors      map[string]string
	Stale       map[string]bool
	Toasts      []Toast
	LastUpdated time.Time
}

// View is a read-only copy of AppState handed to renderers.
type View struct {
	state AppState
}

func (v View) Section() Section { return v.state.Section }
func (v View) Stats() Stats { return v.state.Stats }
func (v View) Alerts() []Alert { return v.state.Alerts }
func (v View) Cameras() []Camera { return v.state.Cameras }
func (v View) Activity() Activity { return v.state.Activity }
func (v View) Events() EventDistribution { return v.state.Events }
func (v View) Heatmap() (Heatmap, bool) { return derefHeatmap(v.state.Heatmap) }
func (v View) Reports() []Report { return v.state.Reports }
func (v View) Toasts() []Toast { return v.state.Toasts }
func (v View) LastUpdated() time.Time { return v.state.LastUpdated }
func (v View) Error(panel string) string { return v.state.Errors[panel] }
func (v View) Stale(panel string) bool { return v.state.Stale[panel] }
func (v View) AlertBadge() int { return v.state.Stats.Anomalies }
func (v View) Loaded(panel string) bool {
	_, ok := v.state.Stale[panel]
	return ok
}

func derefHeatmap(h *Heatmap) (Heatmap, bool) {
	if h == nil {
		return Heatmap{}, false
	}
	return *h, true
}

// Controller owns the AppState and is the only thing that mutates it.
type Controller struct {
	Client      *Client
	AlertsLimit int
	Now         func() time.Time

	mu    sync.Mutex
	state AppState
}

func NewController(client *Client) *Controller {
	return &Controller{
		Client:      client,
		AlertsLimit: DefaultAlertsLimit,
		Now:         time.Now,
		state: AppState{
			Section: SectionDashboard,
			Errors:  map[string]string{},
			Stale:   map[string]bool{},
		},
	}
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	state.Alerts = append([]Alert(nil), c.state.Alerts...)
	state.Cameras = append([]Camera(nil), c.state.Cameras...)
	state.Reports = append([]Report(nil), c.state.Reports...)
	state.Toasts = append([]Toast(nil), c.state.Toasts...)
	state.Errors = make(map[string]string, len(c.state.Errors))
	for k, v := range c.state.Errors {
		state.Errors[k] = v
	}
	state.Stale = make(map[string]bool, len(c.state.Stale))
	for k, v := range c.state.Stale {
		state.Stale[k] = v
	}
	return View{state: state}
}

func (c *Controller) Navigate(section Section) {
	c.mu.Lock()
	c.state.Section = section
	c.mu.Unlock()
}

func (c *Controller) Toast(kind ToastKind, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toastLocked(kind, message)
}

func (c *Controller) toastLocked(kind ToastKind, message string) {
	c.state.Toasts = append(c.state.Toasts, Toast{Kind: kind, Message: message, At: c.Now().UTC()})
	if len(c.state.Toasts) > maxToasts {
		c.state.Toasts = c.state.Toasts[len(c.state.Toasts)-maxToasts:]
	}
}

func (c *Controller) DismissToasts() {
	c.mu.Lock()
	c.state.Toasts = nil
	c.mu.Unlock()
}

// record stores the outcome of a panel load. A failure keeps the previous data, sets the panel
// error and raises a toast.
func (c *Controller) record(panel string, stale bool, err error, apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("panel", panel).Msg("Failed to load panel")
		c.state.Errors[panel] = err.Error()
		c.toastLocked(ToastError, fmt.Sprintf("Failed to load %s", panel))
		return err
	}
	apply()
	delete(c.state.Errors, panel)
	c.state.Stale[panel] = stale
	c.state.LastUpdated = c.Now().UTC()
	return nil
}

func (c *Controller) LoadStats(ctx context.Context) error {
	stats, stale, err := c.Client.Stats(ctx)
	return c.record(panelStats, stale, err, func() { c.state.Stats = stats })
}

func (c *Controller) LoadAlerts(ctx context.Context) error {
	alerts, stale, err := c.Client.Alerts(ctx, c.AlertsLimit)
	return c.record(panelAlerts, stale, err, func() { c.state.Alerts = alerts })
}

func (c *Controller) LoadCameras(ctx context.Context) error {
	cameras, stale, err := c.Client.Cameras(ctx)
	return c.record(panelCameras, stale, err, func() { c.state.Cameras = cameras })
}

// LoadAnalytics loads activity and event distribution. The heatmap is optional and its absence
// is not an error.
func (c *Controller) LoadAnalytics(ctx context.Context) error {
	activity, staleActivity, err := c.Client.Activity(ctx)
	if err != nil {
		return c.record(panelAnalytics, false, err, nil)
	}
	events, staleEvents, err := c.Client.Events(ctx)
	if err != nil {
		return c.record(panelAnalytics, false, err, nil)
	}

	heatmap, staleHeatmap, err := c.Client.Heatmap(ctx)
	var heatmapPtr *Heatmap
	if err != nil {
		log.Debug().Err(err).Msg("Heatmap unavailable")
		staleHeatmap = false
	} else {
		heatmapPtr = &heatmap
	}

	return c.record(panelAnalytics, staleActivity || staleEvents || staleHeatmap, nil, func() {
		c.state.Activity = activity
		c.state.Events = events
		c.state.Heatmap = heatmapPtr
	})
}

func (c *Controller) LoadReports(ctx context.Context) error {
	reports, stale, err := c.Client.Reports(ctx)
	return c.record(panelReports, stale, err, func() { c.state.Reports = reports })
}

// Refresh reloads every panel. Failures are recorded per panel, the first one is returned.
func (c *Controller) Refresh(ctx context.Context) error {
	var firstErr error
	for _, load := range []func(context.Context) error{c.LoadStats, c.LoadAlerts, c.LoadCameras, c.LoadAnalytics, c.LoadReports} {
		if err := load(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LoadSection loads what the section needs to render.
func (c *Controller) LoadSection(ctx context.Context, section Section) error {
	switch section {
	case SectionDashboard:
		err := c.LoadStats(ctx)
		if err2 := c.LoadAlerts(ctx); err == nil {
			err = err2
		}
		return err
	case SectionCameras:
		return c.LoadCameras(ctx)
	case SectionAlerts:
		return c.LoadAlerts(ctx)
	case SectionAnalytics:
		return c.LoadAnalytics(ctx)
	case SectionReports:
		return c.LoadReports(ctx)
	default:
		return nil
	}
}

// GenerateReport validates the range before asking upstream, then reloads the report list.
func (c *Controller) GenerateReport(ctx context.Context, request ReportRequest) (GenerateResult, error) {
	if err := ValidateReportRange(request.StartDate, request.EndDate, c.Now()); err != nil {
		c.Toast(ToastError, err.Error())
		return GenerateResult{}, err
	}
	if request.ReportType == "" {
		request.ReportType = "daily"
	}

	result, err := c.Client.GenerateReport(ctx, request)
	if err != nil {
		c.Toast(ToastError, "Failed to generate report")
		return GenerateResult{}, err
	}
	if !result.Success {
		message := utils.FirstNonEmpty(result.Error, result.Message, "Failed to generate report")
		c.Toast(ToastError, message)
		return result, fmt.Errorf("generate report: %s", message)
	}

	c.Toast(ToastSuccess, "Report generated successfully")
	if err = c.LoadReports(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to reload reports after generation")
	}
	return result, nil
}
