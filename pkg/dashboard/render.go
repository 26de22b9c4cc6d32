package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

const (
	EmptyAlertsMessage  = "No recent alerts"
	CamerasErrorMessage = "Unable to load cameras"
	StaleMessage        = "Showing cached data, live data unavailable"
)

// html collects the first write error so the components can write without checking every call.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *html) rawf(format string, args ...interface{}) {
	if h.err != nil {
		return
	}
	_, h.err = fmt.Fprintf(h.w, format, args...)
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) component(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

func esc(s string) string {
	return templ.EscapeString(s)
}

func StaleMarker(v View, panel string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if !v.Stale(panel) {
			return nil
		}
		h := &html{w: w}
		h.rawf(`<span class="stale-marker" data-panel="%s">`, esc(panel))
		h.text(StaleMessage)
		h.raw(`</span>`)
		return h.err
	})
}

func StatsPanel(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		stats := v.Stats()
		h.raw(`<section class="panel stats">`)
		h.component(ctx, StaleMarker(v, panelStats))
		if msg := v.Error(panelStats); msg != "" && !v.Loaded(panelStats) {
			h.raw(`<p class="panel-error">Unable to load statistics</p>`)
		}
		counters := []struct {
			id, label string
			value     int
		}{
			{"active-cameras", "Active Cameras", stats.ActiveCameras},
			{"normal-events", "Normal Events", stats.NormalEvents},
			{"anomalies", "Anomalies", stats.Anomalies},
			{"people-detected", "People Detected", stats.PeopleDetected},
		}
		for _, counter := range counters {
			h.rawf(`<div class="stat-card"><span class="stat-value" id="%s">%d</span><span class="stat-label">%s</span></div>`,
				counter.id, counter.value, esc(counter.label))
		}
		h.raw(`</section>`)
		return h.err
	})
}

func AlertBadge(v View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.rawf(`<span class="badge" id="alert-badge">%d</span>`, v.AlertBadge())
		return h.err
	})
}

func AlertsPanel(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="panel alerts">`)
		h.component(ctx, StaleMarker(v, panelAlerts))

		alerts := v.Alerts()
		switch {
		case v.Error(panelAlerts) != "" && len(alerts) == 0:
			h.raw(`<p class="panel-error">Unable to load alerts</p>`)
		case len(alerts) == 0:
			h.raw(`<p class="empty-state">`)
			h.text(EmptyAlertsMessage)
			h.raw(`</p>`)
		default:
			h.raw(`<ul class="alert-list">`)
			for _, alert := range alerts {
				h.rawf(`<li class="alert-item severity-%s"><span class="alert-type">%s</span><span class="alert-description">%s</span><span class="alert-camera">Camera %s</span><time>%s</time></li>`,
					esc(alert.Severity), esc(alert.Type), esc(alert.Description), esc(string(alert.CameraID)), esc(alert.Timestamp))
			}
			h.raw(`</ul>`)
		}
		h.raw(`</section>`)
		return h.err
	})
}

func CamerasPanel(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="panel cameras">`)
		h.component(ctx, StaleMarker(v, panelCameras))

		cameras := v.Cameras()
		switch {
		case v.Error(panelCameras) != "" && len(cameras) == 0:
			h.raw(`<p class="panel-error">`)
			h.text(CamerasErrorMessage)
			h.raw(`</p>`)
		case len(cameras) == 0:
			h.raw(`<p class="empty-state">No cameras configured</p>`)
		default:
			h.raw(`<div class="camera-grid">`)
			for _, camera := range cameras {
				snapshot := "/_gateway/cameras/" + url.PathEscape(string(camera.ID)) + "/snapshot"
				h.rawf(`<div class="camera-card status-%s"><img src="%s" alt="%s"><span class="camera-name">%s</span><span class="camera-status">%s</span></div>`,
					esc(camera.Status), esc(snapshot), esc(camera.Name), esc(camera.Name), esc(camera.Status))
			}
			h.raw(`</div>`)
		}
		h.raw(`</section>`)
		return h.err
	})
}

func AnalyticsPanel(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="panel analytics">`)
		h.component(ctx, StaleMarker(v, panelAnalytics))
		if v.Error(panelAnalytics) != "" && !v.Loaded(panelAnalytics) {
			h.raw(`<p class="panel-error">Unable to load analytics</p></section>`)
			return h.err
		}

		activity := v.Activity()
		h.raw(`<table class="activity"><thead><tr><th>Hour</th><th>Motion</th><th>Anomalies</th></tr></thead><tbody>`)
		for i, hour := range activity.Hours {
			h.rawf(`<tr><td>%s</td><td>%s</td><td>%s</td></tr>`, esc(hour), at(activity.MotionEvents, i), at(activity.Anomalies, i))
		}
		h.raw(`</tbody></table>`)

		events := v.Events()
		h.raw(`<ul class="event-distribution">`)
		for i, label := range events.Labels {
			h.rawf(`<li><span class="event-label">%s</span><span class="event-count">%s</span></li>`, esc(label), at(events.Counts, i))
		}
		h.raw(`</ul>`)

		if heatmap, ok := v.Heatmap(); ok {
			h.rawf(`<div class="heatmap" data-points="%d"></div>`, len(heatmap.Points))
		}
		h.raw(`</section>`)
		return h.err
	})
}

func at(values []int, i int) string {
	if i < len(values) {
		return strconv.Itoa(values[i])
	}
	return "0"
}

func ReportsPanel(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="panel reports">`)
		h.component(ctx, StaleMarker(v, panelReports))
		h.raw(`<form method="post" action="/dashboard/reports" class="report-form">` +
			`<input type="date" name="start_date" required><input type="date" name="end_date" required>` +
			`<select name="report_type"><option value="daily">Daily</option><option value="weekly">Weekly</option><option value="monthly">Monthly</option></select>` +
			`<button type="submit">Generate Report</button></form>`)

		reports := v.Reports()
		switch {
		case v.Error(panelReports) != "" && len(reports) == 0:
			h.raw(`<p class="panel-error">Unable to load reports</p>`)
		case len(reports) == 0:
			h.raw(`<p class="empty-state">No reports generated yet</p>`)
		default:
			h.raw(`<ul class="report-list">`)
			for _, report := range reports {
				download := "/_gateway/reports/" + url.PathEscape(string(report.ID)) + "/download"
				h.rawf(`<li><a href="%s">%s</a><span class="report-range">%s to %s</span><span class="report-type">%s</span></li>`,
					esc(download), esc(report.Filename), esc(report.StartDate), esc(report.EndDate), esc(report.ReportType))
			}
			h.raw(`</ul>`)
		}
		h.raw(`</section>`)
		return h.err
	})
}

func UploadPanel() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="panel upload"><form method="post" action="/_gateway/uploads" enctype="multipart/form-data">` +
			`<input type="file" name="video" accept=".mp4,.avi,.mov,.mkv,.flv,.wmv" required>` +
			`<input type="text" name="camera_id" placeholder="Camera ID"><input type="text" name="camera_name" placeholder="Camera name">` +
			`<button type="submit">Upload</button></form></section>`)
		return h.err
	})
}

func Toasts(v View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		toasts := v.Toasts()
		if len(toasts) == 0 {
			return nil
		}
		h := &html{w: w}
		h.raw(`<div class="toasts">`)
		for _, toast := range toasts {
			h.rawf(`<div class="toast toast-%s">%s</div>`, esc(string(toast.Kind)), esc(toast.Message))
		}
		h.raw(`</div>`)
		return h.err
	})
}

// Panel renders the body of one section.
func Panel(v View, section Section) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		switch section {
		case SectionDashboard:
			h.component(ctx, StatsPanel(v))
			h.component(ctx, AlertsPanel(v))
		case SectionCameras:
			h.component(ctx, CamerasPanel(v))
		case SectionAlerts:
			h.component(ctx, AlertsPanel(v))
		case SectionAnalytics:
			h.component(ctx, AnalyticsPanel(v))
		case SectionReports:
			h.component(ctx, ReportsPanel(v))
		case SectionUpload:
			h.component(ctx, UploadPanel())
		}
		return h.err
	})
}

// Page is the full document for the current section.
func Page(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Security Dashboard</title>` +
			`<link rel="stylesheet" href="/css/styles.css"><link rel="manifest" href="/manifest.json"></head><body><nav>`)
		for _, section := range Sections {
			class := ""
			if section == v.Section() {
				class = ` class="active"`
			}
			h.rawf(`<a href="/dashboard/%s"%s>%s</a>`, section, class, esc(string(section)))
			if section == SectionAlerts {
				h.component(ctx, AlertBadge(v))
			}
		}
		h.raw(`</nav><main>`)
		h.component(ctx, Toasts(v))
		h.component(ctx, Panel(v, v.Section()))
		h.raw(`</main></body></html>`)
		return h.err
	})
}
