package domain

// Report represents a complete audit run report
type Report struct {
	Title         string
	Window        ReportWindow
	Sections      []ReportSection
	TotalFindings int
	AffectedUnits int
}

// ReportWindow represents the month range the report covers
type ReportWindow struct {
	Start  YearMonth
	End    YearMonth
	Months int
}

// ReportSection represents a logical section in the report
type ReportSection struct {
	Title    string
	Summary  map[string]interface{}
	Details  []ReportDetail
	Metadata map[string]interface{}
}

// ReportDetail represents detailed information within a section
type ReportDetail struct {
	Name        string
	Value       interface{}
	Unit        string
	Description string
}
