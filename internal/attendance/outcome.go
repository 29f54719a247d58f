package attendance

import (
	"faceattend/internal/face"
	"faceattend/internal/schedule"
)

// Status classifies the result of an attendance attempt. Every rejection
// here is an expected, user-facing outcome, not an error.
type Status string

const (
	StatusRecorded         Status = "recorded"
	StatusAlreadyMarked    Status = "already_marked"
	StatusNoFaceDetected   Status = "no_face_detected"
	StatusIdentityMismatch Status = "identity_mismatch"
	StatusNoActiveClass    Status = "no_active_class"
	StatusNotRecognized    Status = "not_recognized"
)

// Outcome is the structured result of one attendance attempt. Reason is
// always set to a human-readable message.
type Outcome struct {
	Status  Status            `json:"status"`
	Reason  string            `json:"reason"`
	Student *face.Candidate   `json:"student,omitempty"`
	Subject *schedule.Subject `json:"subject,omitempty"`
	Record  *Record           `json:"record,omitempty"`
}

// Success reports whether the attempt produced a new record.
func (o Outcome) Success() bool { return o.Status == StatusRecorded }
