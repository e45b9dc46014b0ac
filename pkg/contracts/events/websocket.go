// Package events defines the messages pushed to WebSocket clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeReportSubmitted announces a new daily progress report.
	MessageTypeReportSubmitted MessageType = "report:submitted"
	// MessageTypeLowStock announces a material falling to its minimum level.
	MessageTypeLowStock MessageType = "material:low_stock"
	// MessageTypeExportCompleted announces a finished export.
	MessageTypeExportCompleted MessageType = "export:completed"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// Message is the envelope of every WebSocket frame sent to clients.
type Message struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// ReportSubmitted is the payload of MessageTypeReportSubmitted.
type ReportSubmitted struct {
	ReportID    string    `json:"report_id"`
	ProjectID   string    `json:"project_id,omitempty"`
	ProjectName string    `json:"project_name"`
	ReportDate  string    `json:"report_date"`
	Stage       string    `json:"stage,omitempty"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// LowStock is the payload of MessageTypeLowStock.
type LowStock struct {
	MaterialID    string  `json:"material_id"`
	Name          string  `json:"name"`
	CurrentStock  float64 `json:"current_stock"`
	MinStockLevel float64 `json:"min_stock_level"`
	Unit          string  `json:"unit"`
}

// ExportCompleted is the payload of MessageTypeExportCompleted.
type ExportCompleted struct {
	Format        string `json:"format"`
	Rows          int    `json:"rows"`
	PhotosSkipped int    `json:"photos_skipped"`
	ChartsSkipped int    `json:"charts_skipped"`
	RequestedBy   string `json:"requested_by,omitempty"`
}

// Connected is the payload sent to a client right after it registers.
type Connected struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

// ErrorPayload is the payload of MessageTypeError.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
