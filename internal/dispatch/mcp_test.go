package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/brbranch/gamelink_mcp/internal/catalog"
	"github.com/brbranch/gamelink_mcp/internal/httpwire"
	"github.com/brbranch/gamelink_mcp/internal/model"
)

func newTestMCP(exec *mockExecutor) *MCP {
	config := model.DefaultConfig("test")
	return NewMCP(config, catalog.Build(), exec, nil)
}

// parseSSEPayload は単一SSEフレームからJSON-RPCペイロードを取り出す
func parseSSEPayload(t *testing.T, reply *httpwire.Reply) map[string]any {
	t.Helper()
	if reply.ContentType != httpwire.ContentTypeEventStream {
		t.Fatalf("expected event-stream reply, got %s", reply.ContentType)
	}
	body := string(reply.Body)
	if !strings.HasPrefix(body, "data: ") || !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("expected single SSE frame, got %q", body)
	}
	payload := strings.TrimSuffix(strings.TrimPrefix(body, "data: "), "\n\n")

	var parsed map[string]any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		t.Fatalf("failed to parse SSE payload: %v (%q)", err, payload)
	}
	return parsed
}

// parseErrorPayload はプレーンJSON応答からエラーペイロードを取り出す
func parseErrorPayload(t *testing.T, reply *httpwire.Reply) map[string]any {
	t.Helper()
	if reply.ContentType != httpwire.ContentTypeJSON {
		t.Fatalf("expected json reply, got %s", reply.ContentType)
	}
	var parsed map[string]any
	if err := json.Unmarshal(reply.Body, &parsed); err != nil {
		t.Fatalf("failed to parse body: %v (%q)", err, reply.Body)
	}
	return parsed
}

// === initialize テスト ===

func TestMCP_Initialize(t *testing.T) {
	m := newTestMCP(&mockExecutor{})

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	if reply.Status != 200 {
		t.Fatalf("expected 200, got %d", reply.Status)
	}

	payload := parseSSEPayload(t, reply)
	if payload["jsonrpc"] != "2.0" {
		t.Errorf("expected jsonrpc 2.0, got %v", payload["jsonrpc"])
	}
	if payload["id"] != float64(1) {
		t.Errorf("expected id 1, got %v", payload["id"])
	}

	result := payload["result"].(map[string]any)
	if result["protocolVersion"] != model.MCPProtocolVersion {
		t.Errorf("expected protocolVersion %s, got %v", model.MCPProtocolVersion, result["protocolVersion"])
	}

	capabilities := result["capabilities"].(map[string]any)
	if capabilities["tools"] == nil {
		t.Error("expected capabilities.tools to exist")
	}

	serverInfo := result["serverInfo"].(map[string]any)
	if serverInfo["name"] != model.DefaultServerName {
		t.Errorf("expected server name %s, got %v", model.DefaultServerName, serverInfo["name"])
	}
	if result["instructions"] == nil || result["instructions"] == "" {
		t.Error("expected non-empty instructions")
	}
}

// === tools/list テスト ===

func TestMCP_ToolsList(t *testing.T) {
	m := newTestMCP(&mockExecutor{})

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	payload := parseSSEPayload(t, reply)

	result := payload["result"].(map[string]any)
	tools := result["tools"].([]any)
	if len(tools) != len(catalog.Build()) {
		t.Errorf("expected full catalog, got %d tools", len(tools))
	}

	first := tools[0].(map[string]any)
	schema := first["inputSchema"].(map[string]any)
	if schema["type"] != "object" || schema["additionalProperties"] != true {
		t.Errorf("expected permissive schema, got %v", schema)
	}
}

// === tools/call テスト ===

func TestMCP_ToolsCall_Success(t *testing.T) {
	exec := &mockExecutor{output: `{"status":"success","result":{"ok":true}}`}
	m := newTestMCP(exec)

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"ping","arguments":{}}}`))
	if reply.Status != 200 {
		t.Fatalf("expected 200, got %d", reply.Status)
	}

	payload := parseSSEPayload(t, reply)
	result := payload["result"].(map[string]any)
	if result["isError"] != false {
		t.Errorf("expected isError false, got %v", result["isError"])
	}

	content := result["content"].([]any)
	item := content[0].(map[string]any)
	if item["type"] != "text" {
		t.Errorf("expected text content, got %v", item["type"])
	}

	// ネストされたresultオブジェクトのシリアライズがテキストになる
	if item["text"] != `{"ok":true}` {
		t.Errorf("expected text {\"ok\":true}, got %v", item["text"])
	}
}

func TestMCP_ToolsCall_ErrorStatus(t *testing.T) {
	exec := &mockExecutor{output: `{"status":"error","error":"actor not found"}`}
	m := newTestMCP(exec)

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"delete_actor"}}`))
	payload := parseSSEPayload(t, reply)

	result := payload["result"].(map[string]any)
	if result["isError"] != true {
		t.Errorf("expected isError true, got %v", result["isError"])
	}

	// argumentsが無い場合は空オブジェクトが渡る
	if exec.lastArgs == nil || len(exec.lastArgs) != 0 {
		t.Errorf("expected empty args, got %v", exec.lastArgs)
	}
}

func TestMCP_ToolsCall_SuccessBoolField(t *testing.T) {
	exec := &mockExecutor{output: `{"success":true,"message":"done"}`}
	m := newTestMCP(exec)

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"ping"}}`))
	payload := parseSSEPayload(t, reply)

	result := payload["result"].(map[string]any)
	if result["isError"] != false {
		t.Errorf("expected isError false, got %v", result["isError"])
	}

	// ネストされたresultが無い場合は生出力がテキストになる
	content := result["content"].([]any)
	if content[0].(map[string]any)["text"] != exec.output {
		t.Errorf("expected raw output text, got %v", content[0])
	}
}

func TestMCP_ToolsCall_UnparsableOutput(t *testing.T) {
	exec := &mockExecutor{output: `not json at all`}
	m := newTestMCP(exec)

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"ping"}}`))
	payload := parseSSEPayload(t, reply)

	result := payload["result"].(map[string]any)
	if result["isError"] != true {
		t.Errorf("expected isError true for unparsable output, got %v", result["isError"])
	}

	content := result["content"].([]any)
	if content[0].(map[string]any)["text"] != "Failed to parse command response" {
		t.Errorf("unexpected text: %v", content[0])
	}
}

func TestMCP_ToolsCall_MissingParams(t *testing.T) {
	exec := &mockExecutor{}
	m := newTestMCP(exec)

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":7,"method":"tools/call"}`))
	if reply.Status != 400 {
		t.Fatalf("expected 400, got %d", reply.Status)
	}

	payload := parseErrorPayload(t, reply)
	rpcError := payload["error"].(map[string]any)
	if rpcError["code"] != float64(model.ErrCodeInvalidParams) {
		t.Errorf("expected -32602, got %v", rpcError["code"])
	}
	if exec.calls != 0 {
		t.Errorf("executor must not be invoked, calls=%d", exec.calls)
	}
}

func TestMCP_ToolsCall_MissingName(t *testing.T) {
	exec := &mockExecutor{}
	m := newTestMCP(exec)

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"arguments":{}}}`))
	if reply.Status != 400 {
		t.Fatalf("expected 400, got %d", reply.Status)
	}

	payload := parseErrorPayload(t, reply)
	rpcError := payload["error"].(map[string]any)
	if rpcError["code"] != float64(model.ErrCodeInvalidParams) {
		t.Errorf("expected -32602, got %v", rpcError["code"])
	}
	if rpcError["message"] != "Missing tool name" {
		t.Errorf("unexpected message: %v", rpcError["message"])
	}
	if exec.calls != 0 {
		t.Errorf("executor must not be invoked, calls=%d", exec.calls)
	}
}

// === エラー系・通知テスト ===

func TestMCP_MalformedBody(t *testing.T) {
	m := newTestMCP(&mockExecutor{})

	reply := m.Handle(context.Background(), []byte(`{broken`))
	if reply.Status != 400 {
		t.Fatalf("expected 400, got %d", reply.Status)
	}

	payload := parseErrorPayload(t, reply)
	rpcError := payload["error"].(map[string]any)
	if rpcError["code"] != float64(model.ErrCodeParseError) {
		t.Errorf("expected -32700, got %v", rpcError["code"])
	}
	if payload["id"] != nil {
		t.Errorf("parse error id must be null, got %v", payload["id"])
	}
}

func TestMCP_MethodNotString(t *testing.T) {
	m := newTestMCP(&mockExecutor{})

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":9,"method":42}`))
	if reply.Status != 400 {
		t.Fatalf("expected 400, got %d", reply.Status)
	}

	payload := parseErrorPayload(t, reply)
	rpcError := payload["error"].(map[string]any)
	if rpcError["code"] != float64(model.ErrCodeInvalidRequest) {
		t.Errorf("expected -32600, got %v", rpcError["code"])
	}
}

func TestMCP_UnknownMethodWithID(t *testing.T) {
	m := newTestMCP(&mockExecutor{})

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":5,"method":"frobnicate"}`))
	if reply.Status != 400 {
		t.Fatalf("expected 400, got %d", reply.Status)
	}

	payload := parseErrorPayload(t, reply)
	rpcError := payload["error"].(map[string]any)
	if rpcError["code"] != float64(model.ErrCodeMethodNotFound) {
		t.Errorf("expected -32601, got %v", rpcError["code"])
	}
	if !strings.Contains(rpcError["message"].(string), "frobnicate") {
		t.Errorf("expected message to contain method name, got %v", rpcError["message"])
	}
}

func TestMCP_UnknownMethodWithoutID(t *testing.T) {
	m := newTestMCP(&mockExecutor{})

	// IDの無い未知メソッドは通知として202で受領
	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if reply.Status != 202 {
		t.Errorf("expected 202, got %d", reply.Status)
	}
	if len(reply.Body) != 0 {
		t.Errorf("expected empty body, got %q", reply.Body)
	}
}

func TestMCP_NoMethodField(t *testing.T) {
	m := newTestMCP(&mockExecutor{})

	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","id":1}`))
	if reply.Status != 202 {
		t.Errorf("expected 202, got %d", reply.Status)
	}
}

func TestMCP_NamedMethodWithoutID(t *testing.T) {
	m := newTestMCP(&mockExecutor{})

	// 名前付きメソッドはIDが無くても処理され、応答のidはnullになる
	reply := m.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"initialize"}`))
	if reply.Status != 200 {
		t.Fatalf("expected 200, got %d", reply.Status)
	}
	payload := parseSSEPayload(t, reply)
	if payload["id"] != nil {
		t.Errorf("expected null id, got %v", payload["id"])
	}
}

// ラウンドトリップ: エンコードした成功結果をデコードすると元と等価
func TestMCP_ResultRoundTrip(t *testing.T) {
	original := map[string]any{"tools": []any{map[string]any{"name": "ping"}}}
	payload, err := json.Marshal(model.NewResponse(float64(1), original))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	redone, _ := json.Marshal(decoded["result"])
	againOriginal, _ := json.Marshal(original)
	if !bytes.Equal(redone, againOriginal) {
		t.Errorf("round trip mismatch: %s vs %s", redone, againOriginal)
	}
}
