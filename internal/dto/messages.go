package dto

// Message types pushed to browser viewers.
const (
	MessageFrame  = "frame"
	MessageNotice = "notice"
)

// FrameMessage carries one base64 JPEG frame to viewers.
type FrameMessage struct {
	Type  string `json:"type"`
	Image string `json:"image"`
}

// NoticeMessage carries a Notice to viewers.
type NoticeMessage struct {
	Type string `json:"type"`
	Notice
}

// Status describes the acquisition state for the control surface.
type Status struct {
	State      string `json:"state"`
	Classifier string `json:"classifier"`
	SessionID  string `json:"sessionId,omitempty"`
	Viewers    int    `json:"viewers"`
}

// SaveRequest is the user-supplied metadata of a save action.
type SaveRequest struct {
	Name  string `json:"name"`
	NetID string `json:"netId"`
	Year  string `json:"year"`
}
