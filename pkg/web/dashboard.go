package web

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/dashboard"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

func renderComponent(c *gin.Context, status int, component templ.Component) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(c.Request.Context(), c.Writer); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
	}
}

// Dashboard renders one section. Panel load failures are part of the page, not an error status.
func (h *Handlers) Dashboard(c *gin.Context) {
	section := dashboard.SectionDashboard
	if param := c.Param("section"); param != "" {
		var err error
		if section, err = dashboard.ParseSection(param); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
	}

	h.Controller.Navigate(section)
	if err := h.Controller.LoadSection(c.Request.Context(), section); err != nil {
		log.Debug().Err(err).Str("section", string(section)).Msg("Section rendered with errors")
	}

	view := h.Controller.View()
	h.Controller.DismissToasts()
	renderComponent(c, http.StatusOK, dashboard.Page(view))
}

func (h *Handlers) GenerateReport(c *gin.Context) {
	var req dashboard.ReportRequest
	req.StartDate = c.PostForm("start_date")
	req.EndDate = c.PostForm("end_date")
	req.ReportType = c.PostForm("report_type")

	_, err := h.Controller.GenerateReport(c.Request.Context(), req)
	if err != nil && !errors.Is(err, e.ErrInvalidReportRange) {
		log.Warn().Err(err).Msg("Report generation failed")
	}
	c.Redirect(http.StatusSeeOther, "/dashboard/reports")
}

type CommandRequest struct {
	Transcript string `json:"transcript" form:"transcript"`
}

func (h *Handlers) Command(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Commands.Dispatch(c.Request.Context(), req.Transcript)
	switch {
	case errors.Is(err, e.ErrNoTranscript):
		c.JSON(http.StatusBadRequest, gin.H{"error": "voice commands need a transcript"})
	case errors.Is(err, e.ErrUnknownCommand):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "command not recognized"})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, result)
	}
}
