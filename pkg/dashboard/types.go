package dashboard

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type Stats struct {
	ActiveCameras  int `json:"activeCameras"`
	NormalEvents   int `json:"normalEvents"`
	Anomalies      int `json:"anomalies"`
	PeopleDetected int `json:"peopleDetected"`
}

// ID accepts both numeric and string identifiers, upstream uses either depending on the source
// of the record.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*id = ID(value)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*id = ID(number.String())
	return nil
}

func (id ID) Int() (int, error) {
	return strconv.Atoi(string(id))
}

type Alert struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	CameraID    ID     `json:"camera_id"`
}

type alertsResponse struct {
	Alerts []Alert `json:"alerts"`
}

type Camera struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type camerasResponse struct {
	Cameras []Camera `json:"cameras"`
}

type Activity struct {
	Hours        []string `json:"hours"`
	MotionEvents []int    `json:"motion_events"`
	Anomalies    []int    `json:"anomalies"`
}

type EventDistribution struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

type HeatmapPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Intensity float64 `json:"intensity"`
}

type Heatmap struct {
	Points []HeatmapPoint `json:"points"`
}

type Report struct {
	ID         ID     `json:"id"`
	Filename   string `json:"filename"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	ReportType string `json:"report_type"`
}

type reportsResponse struct {
	Reports []Report `json:"reports"`
}

type ReportRequest struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	ReportType string `json:"report_type"`
}

type GenerateResult struct {
	Success     bool   `json:"success"`
	ReportID    ID     `json:"report_id,omitempty"`
	Filename    string `json:"filename,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}
