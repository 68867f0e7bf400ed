package types

type ScanRequest struct {
	Code string `json:"code"`
}

type ScanResponse struct {
	OK           bool            `json:"ok"`
	Granted      bool            `json:"granted"`
	Status       Status          `json:"status"`
	Message      string          `json:"message"`
	IdentityName string          `json:"identity_name,omitempty"`
	Decision     *AccessDecision `json:"decision,omitempty"`
	ServerTime   string          `json:"server_time"`
}

type CameraStatus struct {
	Running          bool   `json:"running"`
	Starting         bool   `json:"starting,omitempty"`
	DetectionEnabled bool   `json:"detection_enabled"`
	StartedAt        string `json:"started_at,omitempty"`
	FramesRead       uint64 `json:"frames_read"`
	FramesSampled    uint64 `json:"frames_sampled"`
	SamplesSkipped   uint64 `json:"samples_skipped"`
	Message          string `json:"message,omitempty"`
}

type HourlyCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DetectionStats summarises the access log over a trailing window.
type DetectionStats struct {
	Since     string          `json:"since"`
	Total     int             `json:"total"`
	Granted   int             `json:"granted"`
	Denied    int             `json:"denied"`
	ByChannel map[Channel]int `json:"by_channel"`
	Hourly    []HourlyCount   `json:"hourly"`
}

type AccessLogResponse struct {
	Logs []AccessDecision `json:"logs"`
}

type IdentitiesResponse struct {
	Identities []Identity `json:"identities"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
