package dto

// PostEventsResponse acknowledges a scheduled post.
type PostEventsResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
}
