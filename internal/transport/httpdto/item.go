package httpdto

// CreateItemRequest is the multipart form for POST /v1/items. The attachment
// travels in the "file" part and is read separately.
type CreateItemRequest struct {
	CourseCode string `form:"course_code"`
	Title      string `form:"title"`
	Body       string `form:"body"`
}

// CreateTextItemRequest is the JSON body for POST /v1/items/text
type CreateTextItemRequest struct {
	CourseCode string `json:"course_code"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// CreateItemResponse is returned after a committed submission
type CreateItemResponse struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	BlobPath string `json:"blob_path,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
}

// FeedRequest holds query parameters for GET /v1/feed
type FeedRequest struct {
	Course string `form:"course"`
	Query  string `form:"q"`
}

// FeedResponse is returned by the feed endpoints
type FeedResponse struct {
	Items    []ItemDTO `json:"items"`
	Partial  bool      `json:"partial"`
	Warnings []string  `json:"warnings,omitempty"`
}

// ItemDTO represents a content item in feed responses
type ItemDTO struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	CourseID   string `json:"course_id"`
	CourseCode string `json:"course_code"`
	Professor  string `json:"professor,omitempty"`
	School     string `json:"school,omitempty"`
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
	BlobPath   string `json:"blob_path,omitempty"`
	FileURL    string `json:"file_url,omitempty"`
	Upvotes    int    `json:"upvotes"`
	Mine       bool   `json:"mine"`
	CreatedAt  string `json:"created_at"`
}

// VoteResponse is returned by PUT and DELETE /v1/items/:id/upvote
type VoteResponse struct {
	ItemID  string `json:"item_id"`
	Upvotes int    `json:"upvotes"`
	Changed bool   `json:"changed"`
}
