// Package dispatch は2つのダイアレクトのメッセージルーティングと
// レスポンスエンコードを実装する。
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brbranch/gamelink_mcp/internal/executor"
	"github.com/brbranch/gamelink_mcp/internal/model"
)

// Legacy は改行区切りJSONダイアレクトのディスパッチャ
// typeフィールドで ping / status / tools / call_tool をルーティングする
type Legacy struct {
	config    *model.Config
	tools     []model.Tool
	exec      executor.Executor
	startTime time.Time
	logger    *slog.Logger
}

// NewLegacy は新しいLegacyディスパッチャを生成
func NewLegacy(config *model.Config, tools []model.Tool, exec executor.Executor, logger *slog.Logger) *Legacy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Legacy{
		config:    config,
		tools:     tools,
		exec:      exec,
		startTime: time.Now(),
		logger:    logger,
	}
}

// Handle は1行分のメッセージを処理して改行終端の応答を返す
//
// 不正なJSONや未知のtypeはエラーオブジェクトの応答になり、接続は
// 切断しない。空行にはnilを返す（応答なし）
func (d *Legacy) Handle(ctx context.Context, line string) []byte {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	var message map[string]any
	if err := json.Unmarshal([]byte(line), &message); err != nil {
		d.logger.Warn("received malformed legacy message", "error", err)
		return encodeLine(model.NewLegacyError("Invalid JSON message"))
	}

	typeValue, ok := message["type"].(string)
	if !ok {
		return encodeLine(model.NewLegacyError("Missing required field: type"))
	}

	switch typeValue {
	case model.LegacyTypePing:
		return encodeLine(model.NewLegacyPong())
	case model.LegacyTypeStatus:
		return encodeLine(d.buildStatus())
	case model.LegacyTypeTools:
		return encodeLine(&model.LegacyTools{
			Type:  model.LegacyTypeTools,
			Tools: d.tools,
		})
	case model.LegacyTypeCallTool:
		return d.handleCallTool(ctx, message)
	default:
		return encodeLine(model.NewLegacyError(fmt.Sprintf("Unknown message type: %s", typeValue)))
	}
}

// handleCallTool は call_tool メッセージを処理する
// 応答はコマンド実行側のJSON出力をそのまま改行終端で返す
func (d *Legacy) handleCallTool(ctx context.Context, message map[string]any) []byte {
	tool, ok := message["tool"].(string)
	if !ok || tool == "" {
		return encodeLine(model.NewLegacyError("Missing required field: tool"))
	}

	// paramsが無い、またはオブジェクトでない場合は空オブジェクト
	params, _ := message["params"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}

	raw, err := d.exec.ExecuteCommand(ctx, tool, params)
	if err != nil {
		d.logger.Warn("command execution failed", "tool", tool, "error", err)
		return encodeLine(model.NewLegacyError(err.Error()))
	}

	return append([]byte(raw), '\n')
}

// Heartbeat は現在時刻のハートビートメッセージを生成する
func (d *Legacy) Heartbeat(now time.Time) []byte {
	timestamp := float64(now.UnixNano()) / float64(time.Second)
	return encodeLine(model.NewLegacyHeartbeat(timestamp))
}

// buildStatus は status 応答を組み立てる
// ホストとポートは起動時に渡された設定値から報告する
func (d *Legacy) buildStatus() *model.LegacyStatus {
	return &model.LegacyStatus{
		Type:              model.LegacyTypeStatus,
		Running:           true,
		UptimeSeconds:     time.Since(d.startTime).Seconds(),
		Host:              d.config.Server.Host,
		Port:              d.config.Server.LegacyPort,
		HeartbeatInterval: d.config.Server.HeartbeatInterval,
	}
}

// encodeLine はメッセージをコンパクトなJSON+改行にエンコードする
// encoding/jsonの出力は生の改行を含まないため、フレーミング不変条件を
// サーバー側から破ることはない
func encodeLine(message any) []byte {
	b, _ := json.Marshal(message)
	return append(b, '\n')
}
