package types

type ViewHeartbeat struct {
	ViewID string `json:"view_id"`
	View   string `json:"view,omitempty"` // "scanner" when omitted
}

type ViewHeartbeatResponse struct {
	OK         bool   `json:"ok"`
	ViewID     string `json:"view_id"`
	ServerTime string `json:"server_time"`
}
