package exchange

// DocumentType identifies the kind of exchange document.
type DocumentType string

const (
	DocumentTransaction DocumentType = "POSJournal"
	DocumentDepartment  DocumentType = "DepartmentMaintenance"
	DocumentTender      DocumentType = "TenderMaintenance"
	DocumentTaxRate     DocumentType = "TaxRateMaintenance"
	DocumentUnknown     DocumentType = "Unknown"
)

// DataCategory groups document types for the audit trail.
type DataCategory string

const (
	CategoryTransaction DataCategory = "TRANSACTION"
	CategoryMaintenance DataCategory = "MAINTENANCE"
	CategoryUnknown     DataCategory = "UNKNOWN"
)

// Category returns the data category of the document type.
func (d DocumentType) Category() DataCategory {
	switch d {
	case DocumentTransaction:
		return CategoryTransaction
	case DocumentDepartment, DocumentTender, DocumentTaxRate:
		return CategoryMaintenance
	default:
		return CategoryUnknown
	}
}

// ProcessingStatus is the outcome of a single document.
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "SUCCESS"
	StatusFailed  ProcessingStatus = "FAILED"
	StatusSkipped ProcessingStatus = "SKIPPED"
)

// ProcessingResult is produced once per processed file or content submission.
type ProcessingResult struct {
	Success          bool             `json:"success"`
	FileName         string           `json:"fileName"`
	FilePath         string           `json:"filePath,omitempty"`
	FileHash         string           `json:"fileHash,omitempty"`
	FileSize         int64            `json:"fileSize"`
	DocumentType     DocumentType     `json:"documentType,omitempty"`
	RecordCount      int              `json:"recordCount,omitempty"`
	Status           ProcessingStatus `json:"status"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
	MovedTo          string           `json:"movedTo,omitempty"`
}
