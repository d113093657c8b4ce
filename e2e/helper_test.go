//go:build e2e

package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brbranch/gamelink_mcp/internal/bootstrap"
	"github.com/brbranch/gamelink_mcp/internal/transport/tcp"
)

// testEndpoint は起動済みリスナー1本分の接続情報
type testEndpoint struct {
	addr string
}

// setupServers は両ダイアレクトのリスナーをエフェメラルポートで起動する
func setupServers(t *testing.T) (legacy, mcp *testEndpoint) {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	services, cleanup, err := bootstrap.Initialize(configPath, "e2e", nil)
	if err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}
	t.Cleanup(cleanup)

	legacyServer := tcp.New("127.0.0.1:0", services.LegacyDialect, services.Config,
		tcp.WithAcceptPollInterval(10*time.Millisecond),
		tcp.WithReadPollInterval(time.Millisecond))
	mcpServer := tcp.New("127.0.0.1:0", services.MCPDialect, services.Config,
		tcp.WithAcceptPollInterval(10*time.Millisecond),
		tcp.WithReadPollInterval(time.Millisecond))

	for _, server := range []*tcp.Server{legacyServer, mcpServer} {
		server := server
		if err := server.Listen(); err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			server.Run(ctx)
		}()
		t.Cleanup(func() {
			cancel()
			select {
			case <-done:
			case <-time.After(3 * time.Second):
				t.Error("server did not stop")
			}
		})
	}

	return &testEndpoint{addr: legacyServer.Addr().String()},
		&testEndpoint{addr: mcpServer.Addr().String()}
}

// dialLegacy は改行区切りJSONエンドポイントへ接続する
func dialLegacy(t *testing.T, endpoint *testEndpoint) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", endpoint.addr)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

// sendLine は1行送信して応答1行をパースして返す
func sendLine(t *testing.T, conn net.Conn, reader *bufio.Reader, line string) map[string]any {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	reply, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read reply: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		t.Fatalf("failed to parse reply: %v (%q)", err, reply)
	}
	return parsed
}

// httpResponse はパース済みの生HTTPレスポンス
type httpResponse struct {
	StatusLine string
	Headers    map[string]string
	Body       string
}

// postJSONRPC はJSON-RPCメッセージをPOSTしてレスポンス全体を読み切る
func postJSONRPC(t *testing.T, endpoint *testEndpoint, body string) *httpResponse {
	t.Helper()
	raw := fmt.Sprintf("POST /mcp HTTP/1.1\r\nHost: 127.0.0.1\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	return doRawHTTP(t, endpoint, raw)
}

// doRawHTTP は生のHTTPリクエストを送り、切断までレスポンスを読む
func doRawHTTP(t *testing.T, endpoint *testEndpoint, raw string) *httpResponse {
	t.Helper()
	conn, err := net.Dial("tcp", endpoint.addr)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatalf("failed to write request: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}

	return parseHTTPResponse(t, string(data))
}

func parseHTTPResponse(t *testing.T, raw string) *httpResponse {
	t.Helper()
	head, body, found := strings.Cut(raw, "\r\n\r\n")
	if !found {
		t.Fatalf("no header terminator in response: %q", raw)
	}

	lines := strings.Split(head, "\r\n")
	headers := map[string]string{}
	for _, line := range lines[1:] {
		if name, value, ok := strings.Cut(line, ": "); ok {
			headers[strings.ToLower(name)] = value
		}
	}

	return &httpResponse{
		StatusLine: lines[0],
		Headers:    headers,
		Body:       body,
	}
}

// ssePayload はSSEフレームからJSONペイロードを取り出してパースする
func ssePayload(t *testing.T, response *httpResponse) map[string]any {
	t.Helper()
	if !strings.HasPrefix(response.Body, "data: ") {
		t.Fatalf("expected SSE frame, got %q", response.Body)
	}
	payload := strings.TrimSuffix(strings.TrimPrefix(response.Body, "data: "), "\n\n")

	var parsed map[string]any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		t.Fatalf("failed to parse SSE payload: %v (%q)", err, payload)
	}
	return parsed
}
