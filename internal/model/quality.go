package model

// NCR is a non-conformance report.
type NCR struct {
	ID               uint64    `json:"id"`
	ProjectID        uint64    `json:"project_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Severity         string    `json:"severity"`
	Status           NCRStatus `json:"status"`
	DetectedBy       uint64    `json:"detected_by"`
	AssignedTo       *uint64   `json:"assigned_to"`
	CorrectiveAction string    `json:"corrective_action"`
	DetectedDate     Date      `json:"detected_date"`
	ClosedDate       *Date     `json:"closed_date"`
	CreationTime     int64     `json:"creation_time"`
}

// MaterialInspection records an incoming-material check.
type MaterialInspection struct {
	ID             uint64           `json:"id"`
	ProjectID      uint64           `json:"project_id"`
	Material       string           `json:"material"`
	Supplier       string           `json:"supplier"`
	BatchNumber    string           `json:"batch_number"`
	Quantity       string           `json:"quantity"`
	Result         InspectionResult `json:"result"`
	InspectedBy    uint64           `json:"inspected_by"`
	InspectionDate Date             `json:"inspection_date"`
	Notes          string           `json:"notes"`
	CreationTime   int64            `json:"creation_time"`
}

// TestResult records a lab or field test.
type TestResult struct {
	ID             uint64      `json:"id"`
	ProjectID      uint64      `json:"project_id"`
	TestType       string      `json:"test_type"`
	SampleLocation string      `json:"sample_location"`
	Value          string      `json:"value"`
	Unit           string      `json:"unit"`
	Specification  string      `json:"specification"`
	Result         TestOutcome `json:"result"`
	TestedBy       uint64      `json:"tested_by"`
	TestDate       Date        `json:"test_date"`
	Notes          string      `json:"notes"`
	CreationTime   int64       `json:"creation_time"`
}
