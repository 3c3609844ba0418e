package constants

// AnalysisStatus is the status reported when polling a provider operation.
type AnalysisStatus string

// Stable values (also used in attempt logs and batch summaries).
const (
	AnalysisPending   AnalysisStatus = "PENDING"   // submitted, still processing
	AnalysisSucceeded AnalysisStatus = "SUCCEEDED" // terminal: result available
	AnalysisFailed    AnalysisStatus = "FAILED"    // terminal: provider-side failure
)

// Terminal reports whether the status ends the polling loop.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisSucceeded || s == AnalysisFailed
}
