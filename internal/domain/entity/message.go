package entity

import "github.com/google/uuid"

// RunRequestMessage is the inbound message from the imagery.processing queue.
type RunRequestMessage struct {
	RunID     uuid.UUID `json:"run_id"`
	SourceURL string    `json:"source_url"`
	UserEmail string    `json:"user_email,omitempty"`
}

// RunStatusMessage is the outbound message published to the imagery.status queue.
type RunStatusMessage struct {
	RunID        uuid.UUID `json:"run_id"`
	Status       RunStatus `json:"status"`
	SourceURL    string    `json:"source_url"`
	VideoID      string    `json:"video_id,omitempty"`
	FrameCount   int       `json:"frame_count,omitempty"`
	ProductCount int       `json:"product_count,omitempty"`
	ReportKey    string    `json:"report_key,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
