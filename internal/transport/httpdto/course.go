package httpdto

// CourseCodesResponse is returned by GET /v1/courses/codes
type CourseCodesResponse struct {
	Codes []string `json:"codes"`
}
