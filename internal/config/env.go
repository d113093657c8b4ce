package config

import (
	"os"
	"strconv"

	"github.com/brbranch/gamelink_mcp/internal/model"
)

// 環境変数名の定数
const (
	EnvHost              = "GAMELINK_HOST"
	EnvLegacyPort        = "GAMELINK_PORT"
	EnvMCPPort           = "GAMELINK_MCP_PORT"
	EnvHeartbeatInterval = "GAMELINK_HEARTBEAT_INTERVAL"
	EnvCommandLogPath    = "GAMELINK_COMMAND_LOG"
)

// ApplyEnvOverrides は環境変数による設定上書きを適用する
// config を直接変更する。不正な値は無視してファイル/デフォルト値を維持
func ApplyEnvOverrides(config *model.Config) {
	if host := os.Getenv(EnvHost); host != "" {
		config.Server.Host = host
	}
	if port, ok := envInt(EnvLegacyPort); ok {
		config.Server.LegacyPort = port
	}
	if port, ok := envInt(EnvMCPPort); ok {
		config.Server.MCPPort = port
	}
	if interval, ok := envFloat(EnvHeartbeatInterval); ok {
		config.Server.HeartbeatInterval = interval
	}
	if path := os.Getenv(EnvCommandLogPath); path != "" {
		config.Log.CommandLogPath = path
	}
}

// envInt は環境変数を整数として取得する
func envInt(key string) (int, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// envFloat は環境変数を浮動小数点数として取得する
func envFloat(key string) (float64, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
