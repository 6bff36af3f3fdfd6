package server

// submitRequest is the POST /api/v1/scans body. Credentials are optional;
// when present they are encrypted before leaving the handler.
type submitRequest struct {
	URL         string             `json:"url"`
	Email       string             `json:"email,omitempty"`
	Credentials *submitCredentials `json:"credentials,omitempty"`
}

type submitCredentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
}

// submitResponse acknowledges an accepted scan.
type submitResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// statusResponse is the polling view of a job.
type statusResponse struct {
	JobID        string `json:"jobId"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	CurrentStage string `json:"currentStage,omitempty"`
	StageMessage string `json:"stageMessage,omitempty"`
	ReportURL    string `json:"reportUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

// errorResponse carries a stable machine code plus a human message.
type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
