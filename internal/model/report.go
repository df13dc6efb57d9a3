package model

import "time"

// CustomReport is a saved report definition (name + filters) that the
// user can favorite and re-run.
type CustomReport struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string         `gorm:"type:varchar(36);index;not null" json:"userId"`
	Name        string         `gorm:"type:varchar(120);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Type        string         `gorm:"type:varchar(32);not null" json:"type"`
	Filters     map[string]any `gorm:"type:json;serializer:json" json:"filters,omitempty"`
	IsFavorite  bool           `gorm:"not null;default:false" json:"isFavorite"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (CustomReport) TableName() string { return "custom_reports" }

// Report formats and statuses.
const (
	FormatPDF  = "PDF"
	FormatCSV  = "CSV"
	FormatXLSX = "XLSX"
	FormatJSON = "JSON"

	ReportPending   = "PENDING"
	ReportCompleted = "COMPLETED"
	ReportFailed    = "FAILED"
)

// ReportMetadata is stored as JSON next to the report row.
type ReportMetadata struct {
	FilePath string `json:"filePath,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Rows     int    `json:"rows,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report is a generated export whose file lives in object storage.
type Report struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string         `gorm:"type:varchar(36);index;not null" json:"userId"`
	Title     string         `gorm:"type:varchar(191);not null" json:"title"`
	Type      string         `gorm:"type:varchar(32);not null" json:"type"`
	Format    string         `gorm:"type:varchar(8);not null" json:"format"`
	Status    string         `gorm:"type:varchar(12);not null;default:PENDING" json:"status"`
	Metadata  ReportMetadata `gorm:"type:json;serializer:json" json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (Report) TableName() string { return "reports" }

// ContentType maps the stored format to the MIME type used on download.
func ContentType(format string) string {
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}
