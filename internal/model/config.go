package model

import (
	"fmt"
	"time"
)

// デフォルト設定値
const (
	DefaultHost              = "127.0.0.1"
	DefaultLegacyPort        = 55557
	DefaultMCPPort           = 55558
	DefaultHeartbeatInterval = 25.0    // 秒、0以下で無効
	DefaultRequestTimeout    = 30.0    // 秒、HTTPリクエスト組み立ての上限、0以下で無効
	DefaultMaxBufferSize     = 1 << 20 // 受信バッファの未消費バイト上限（1MiB）
	DefaultChunkSize         = 65536   // 1回のRecvで読み取る最大バイト数
	DefaultSocketBufferSize  = 65536   // ソケット送受信バッファサイズ
	DefaultServerName        = "mcp-gamelink"
	DefaultInstructions      = "GameLink MCP Streamable HTTP endpoint"
)

// Config はサーバー全体の設定
// 起動時に一度だけ構築し、以降は読み取り専用の値として各コンポーネントへ渡す
type Config struct {
	Server ServerConfig `json:"server"`
	Limits LimitsConfig `json:"limits"`
	Log    LogConfig    `json:"log"`
}

// ServerConfig はリスナーとプロトコルの設定
type ServerConfig struct {
	Host              string  `json:"host"`
	LegacyPort        int     `json:"legacyPort"`        // 改行区切りJSONダイアレクト
	MCPPort           int     `json:"mcpPort"`           // Streamable HTTPダイアレクト
	HeartbeatInterval float64 `json:"heartbeatInterval"` // 秒、0以下で無効
	RequestTimeout    float64 `json:"requestTimeout"`    // 秒、0以下で無効
	Name              string  `json:"name"`
	Version           string  `json:"version"`
	Instructions      string  `json:"instructions"`
}

// LimitsConfig はバッファサイズ関連の設定
type LimitsConfig struct {
	MaxBufferSize    int `json:"maxBufferSize"`
	ChunkSize        int `json:"chunkSize"`
	SocketBufferSize int `json:"socketBufferSize"`
}

// LogConfig はコマンドログの設定
type LogConfig struct {
	CommandLogPath string `json:"commandLogPath,omitempty"` // 空文字でコマンドログ無効
}

// DefaultConfig はデフォルト設定を生成
func DefaultConfig(version string) *Config {
	return &Config{
		Server: ServerConfig{
			Host:              DefaultHost,
			LegacyPort:        DefaultLegacyPort,
			MCPPort:           DefaultMCPPort,
			HeartbeatInterval: DefaultHeartbeatInterval,
			RequestTimeout:    DefaultRequestTimeout,
			Name:              DefaultServerName,
			Version:           version,
			Instructions:      DefaultInstructions,
		},
		Limits: LimitsConfig{
			MaxBufferSize:    DefaultMaxBufferSize,
			ChunkSize:        DefaultChunkSize,
			SocketBufferSize: DefaultSocketBufferSize,
		},
	}
}

// Validate は設定値を検証する
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Server.LegacyPort < 1 || c.Server.LegacyPort > 65535 {
		return fmt.Errorf("invalid legacy port: %d (must be 1-65535)", c.Server.LegacyPort)
	}
	if c.Server.MCPPort < 1 || c.Server.MCPPort > 65535 {
		return fmt.Errorf("invalid mcp port: %d (must be 1-65535)", c.Server.MCPPort)
	}
	if c.Server.LegacyPort == c.Server.MCPPort {
		return fmt.Errorf("legacy port and mcp port must differ: %d", c.Server.LegacyPort)
	}
	if c.Limits.MaxBufferSize <= 0 {
		return fmt.Errorf("invalid max buffer size: %d", c.Limits.MaxBufferSize)
	}
	if c.Limits.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d", c.Limits.ChunkSize)
	}
	return nil
}

// HeartbeatEnabled はハートビートが有効かどうか
func (c *Config) HeartbeatEnabled() bool {
	return c.Server.HeartbeatInterval > 0
}

// HeartbeatDuration はハートビート間隔をtime.Durationで返す
func (c *Config) HeartbeatDuration() time.Duration {
	return time.Duration(c.Server.HeartbeatInterval * float64(time.Second))
}

// RequestTimeoutDuration はHTTPリクエスト組み立てタイムアウトをtime.Durationで返す
// 0以下（無効）の場合は0を返す
func (c *Config) RequestTimeoutDuration() time.Duration {
	if c.Server.RequestTimeout <= 0 {
		return 0
	}
	return time.Duration(c.Server.RequestTimeout * float64(time.Second))
}
