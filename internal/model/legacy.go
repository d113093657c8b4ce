package model

// レガシーダイアレクトのメッセージタイプ
const (
	LegacyTypePing      = "ping"
	LegacyTypeStatus    = "status"
	LegacyTypeTools     = "tools"
	LegacyTypeCallTool  = "call_tool"
	LegacyTypePong      = "pong"
	LegacyTypeHeartbeat = "heartbeat"
)

// LegacyMessage は改行区切りJSONダイアレクトの受信メッセージ
type LegacyMessage struct {
	Type   string         `json:"type"`
	Tool   string         `json:"tool,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// LegacyPong は ping への応答
type LegacyPong struct {
	Type string `json:"type"`
}

// LegacyStatus は status への応答
type LegacyStatus struct {
	Type              string  `json:"type"`
	Running           bool    `json:"running"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
	Host              string  `json:"host"`
	Port              int     `json:"port"`
	HeartbeatInterval float64 `json:"heartbeat_interval"`
}

// LegacyTools は tools への応答
type LegacyTools struct {
	Type  string `json:"type"`
	Tools []Tool `json:"tools"`
}

// LegacyHeartbeat はサーバーから一方的に送信されるハートビート
type LegacyHeartbeat struct {
	Type      string  `json:"type"`
	Timestamp float64 `json:"timestamp"` // UNIX秒
}

// LegacyError はエラー応答
type LegacyError struct {
	Error string `json:"error"`
}

// NewLegacyPong は pong 応答を生成
func NewLegacyPong() *LegacyPong {
	return &LegacyPong{Type: LegacyTypePong}
}

// NewLegacyHeartbeat はハートビートを生成
func NewLegacyHeartbeat(timestamp float64) *LegacyHeartbeat {
	return &LegacyHeartbeat{
		Type:      LegacyTypeHeartbeat,
		Timestamp: timestamp,
	}
}

// NewLegacyError はエラー応答を生成
func NewLegacyError(message string) *LegacyError {
	return &LegacyError{Error: message}
}
