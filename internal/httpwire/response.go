package httpwire

import (
	"fmt"
	"sort"

	"github.com/brbranch/gamelink_mcp/internal/model"
)

// コンテンツタイプ
const (
	ContentTypeJSON        = "application/json"
	ContentTypeText        = "text/plain"
	ContentTypeEventStream = "text/event-stream"
)

// Reply はエンコード前のHTTPレスポンス
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
	Headers     map[string]string // 追加ヘッダ、省略可
}

// NewTextReply はプレーンテキストのReplyを生成
func NewTextReply(status int, text string) *Reply {
	return &Reply{
		Status:      status,
		ContentType: ContentTypeText,
		Body:        []byte(text),
	}
}

// NewJSONReply はJSONボディのReplyを生成
func NewJSONReply(status int, body []byte) *Reply {
	return &Reply{
		Status:      status,
		ContentType: ContentTypeJSON,
		Body:        body,
	}
}

// NewEmptyJSONReply は空ボディのJSON Replyを生成（202応答用）
func NewEmptyJSONReply(status int) *Reply {
	return NewJSONReply(status, nil)
}

// NewSSEReply はJSONペイロードを単一のSSEフレームに包んだReplyを生成
// フレームは "data: <json>\n\n" の1イベントのみ
func NewSSEReply(status int, jsonPayload []byte) *Reply {
	return &Reply{
		Status:      status,
		ContentType: ContentTypeEventStream,
		Body:        []byte(fmt.Sprintf("data: %s\n\n", jsonPayload)),
		Headers: map[string]string{
			"Cache-Control": "no-cache, no-transform",
		},
	}
}

// NewSSEStreamReply はGETで開く空のSSEストリーム応答を生成
func NewSSEStreamReply() *Reply {
	return &Reply{
		Status:      200,
		ContentType: ContentTypeEventStream,
		Headers: map[string]string{
			"Cache-Control": "no-cache, no-transform",
		},
	}
}

// Encode はReplyをワイヤ形式のバイト列に変換する
//
// すべてのレスポンスはContent-Type、Content-Length、Connection: close、
// mcp-protocol-versionを持ち、セッションIDが割り当て済みであれば
// mcp-session-idも付与する
func (r *Reply) Encode(sessionID string) []byte {
	head := fmt.Sprintf("HTTP/1.1 %d %s\r\n", r.Status, StatusText(r.Status))
	head += fmt.Sprintf("Content-Type: %s\r\n", r.ContentType)
	head += fmt.Sprintf("Content-Length: %d\r\n", len(r.Body))
	head += "Connection: close\r\n"
	head += fmt.Sprintf("mcp-protocol-version: %s\r\n", model.MCPProtocolVersion)
	if sessionID != "" {
		head += fmt.Sprintf("mcp-session-id: %s\r\n", sessionID)
	}

	// 追加ヘッダは出力順を安定させる
	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		head += fmt.Sprintf("%s: %s\r\n", name, r.Headers[name])
	}

	head += "\r\n"

	encoded := make([]byte, 0, len(head)+len(r.Body))
	encoded = append(encoded, head...)
	encoded = append(encoded, r.Body...)
	return encoded
}

// StatusText はステータスコードの理由句を返す
func StatusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 202:
		return "Accepted"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 500:
		return "Internal Server Error"
	default:
		return "OK"
	}
}
