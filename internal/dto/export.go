package dto

import "time"

// ExportFormat enumerates downloadable file types.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ExportRequest selects the records to export. An empty Staff exports the whole run.
type ExportRequest struct {
	Staff  string       `json:"staff"`
	Week   string       `json:"week"`
	Format ExportFormat `json:"format" validate:"required,oneof=xlsx csv pdf"`
}

// ExportResponse points at the generated file.
type ExportResponse struct {
	Token     string       `json:"token"`
	URL       string       `json:"url"`
	Filename  string       `json:"filename"`
	Format    ExportFormat `json:"format"`
	Records   int          `json:"records"`
	ExpiresAt time.Time    `json:"expiresAt"`
}
