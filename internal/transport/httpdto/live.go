package httpdto

// ChangeMessage is one frame on the live feed websocket.
type ChangeMessage struct {
	Collection string `json:"collection"`
	Op         string `json:"op"`
	RecordID   string `json:"record_id"`
	ActorID    string `json:"actor_id,omitempty"`
	CourseID   string `json:"course_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
