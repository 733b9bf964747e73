package httpdto

// SummaryResponse is returned by POST /v1/summaries
type SummaryResponse struct {
	Summary string `json:"summary"`
}
