package dto

// NoticeKind classifies a message shown to the user.
type NoticeKind string

const (
	NoticeDeviceOpen      NoticeKind = "device_open"
	NoticeModelLoad       NoticeKind = "model_load"
	NoticeShutdownTimeout NoticeKind = "shutdown_timeout"
	NoticeNoClassifier    NoticeKind = "no_classifier"
	NoticeSaveFailed      NoticeKind = "save_failed"
	NoticeSaved           NoticeKind = "saved"
)

// Notice is a user-visible report of something the core handled.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}
