package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brbranch/gamelink_mcp/internal/executor"
	"github.com/brbranch/gamelink_mcp/internal/httpwire"
	"github.com/brbranch/gamelink_mcp/internal/model"
)

// MCP はStreamable HTTPダイアレクトのJSON-RPCディスパッチャ
// methodフィールドで initialize / tools/list / tools/call をルーティングする
type MCP struct {
	config *model.Config
	tools  []model.Tool
	exec   executor.Executor
	logger *slog.Logger
}

// NewMCP は新しいMCPディスパッチャを生成
func NewMCP(config *model.Config, tools []model.Tool, exec executor.Executor, logger *slog.Logger) *MCP {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCP{
		config: config,
		tools:  tools,
		exec:   exec,
		logger: logger,
	}
}

// Handle はパース済みHTTPボディのJSON-RPCメッセージを1件処理する
//
// 成功した名前付きメソッドはSSEフレーム入りの200、エラーはプレーンな
// JSONボディ、IDの無い未知メソッド（通知）は202の空応答になる
func (m *MCP) Handle(ctx context.Context, body []byte) *httpwire.Reply {
	var message map[string]any
	if err := json.Unmarshal(body, &message); err != nil {
		return errorReply(400, model.NewParseError(err.Error()))
	}

	// methodフィールドが無いメッセージは応答値を持たないため、
	// 202で受領だけを返す
	methodValue, hasMethod := message["method"]
	if !hasMethod {
		return httpwire.NewEmptyJSONReply(202)
	}

	// idキーの有無で通知かどうかを判定する（id: null は通知ではない）
	id, hasID := message["id"]

	method, ok := methodValue.(string)
	if !ok {
		return errorReply(400, model.NewInvalidRequest(id, "Invalid request method"))
	}

	switch method {
	case "initialize":
		return m.handleInitialize(id)
	case "tools/list":
		return m.handleToolsList(id)
	case "tools/call":
		return m.handleToolsCall(ctx, id, message["params"])
	}

	// IDの無い未知メソッドは通知として受領のみ
	if !hasID {
		return httpwire.NewEmptyJSONReply(202)
	}

	return errorReply(400, model.NewMethodNotFound(id, fmt.Sprintf("Unknown method: %s", method)))
}

// handleInitialize は initialize メソッドを処理
func (m *MCP) handleInitialize(id any) *httpwire.Reply {
	result := &model.InitializeResult{
		ProtocolVersion: model.MCPProtocolVersion,
		Capabilities: model.Capabilities{
			Tools: &model.ToolsCapability{},
		},
		ServerInfo: model.ServerInfo{
			Name:    m.config.Server.Name,
			Version: m.config.Server.Version,
		},
		Instructions: m.config.Server.Instructions,
	}
	return sseResult(id, result)
}

// handleToolsList は tools/list メソッドを処理
func (m *MCP) handleToolsList(id any) *httpwire.Reply {
	return sseResult(id, &model.ToolsListResult{Tools: m.tools})
}

// handleToolsCall は tools/call メソッドを処理
func (m *MCP) handleToolsCall(ctx context.Context, id any, paramsValue any) *httpwire.Reply {
	params, ok := paramsValue.(map[string]any)
	if !ok {
		return errorReply(400, model.NewInvalidParams(id, "Missing params for tools/call"))
	}

	name, ok := params["name"].(string)
	if !ok || name == "" {
		return errorReply(400, model.NewInvalidParams(id, "Missing tool name"))
	}

	// argumentsが無い、またはオブジェクトでない場合は空オブジェクト
	args, _ := params["arguments"].(map[string]any)
	if args == nil {
		args = map[string]any{}
	}

	raw, err := m.exec.ExecuteCommand(ctx, name, args)
	if err != nil {
		m.logger.Warn("command execution failed", "tool", name, "error", err)
		raw = ""
	}

	success, text := inspectCommandOutput(raw, err)

	result := &model.ToolsCallResult{
		Content: []model.ContentItem{model.NewTextContent(text)},
		IsError: !success,
	}
	return sseResult(id, result)
}

// inspectCommandOutput はコマンド実行側の生出力から成否とテキストを決める
//
// 出力オブジェクトの status 文字列（大文字小文字無視で"success"）または
// success 真偽値で成否を判定し、ネストされた result オブジェクトがあれば
// そのシリアライズをテキストにする。出力がパースできない場合は失敗扱い
func inspectCommandOutput(raw string, execErr error) (success bool, text string) {
	if execErr != nil {
		return false, execErr.Error()
	}

	success = true
	text = raw
	commandError := ""

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		success = false
		commandError = "Failed to parse command response"
	} else {
		if status, ok := parsed["status"].(string); ok {
			success = strings.EqualFold(status, "success")
		} else if flag, ok := parsed["success"].(bool); ok {
			success = flag
		}

		if result, ok := parsed["result"].(map[string]any); ok {
			if b, err := json.Marshal(result); err == nil {
				text = string(b)
			}
		}
	}

	if !success && commandError != "" {
		text = commandError
	}
	return success, text
}

// sseResult は成功結果を単一SSEフレームの200応答に包む
func sseResult(id any, result any) *httpwire.Reply {
	payload, _ := json.Marshal(model.NewResponse(id, result))
	return httpwire.NewSSEReply(200, payload)
}

// errorReply はJSON-RPCエラーをプレーンなJSON応答に包む
func errorReply(status int, errResponse *model.ErrorResponse) *httpwire.Reply {
	payload, _ := json.Marshal(errResponse)
	return httpwire.NewJSONReply(status, payload)
}
