package tcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brbranch/gamelink_mcp/internal/buffer"
	"github.com/brbranch/gamelink_mcp/internal/dispatch"
	"github.com/brbranch/gamelink_mcp/internal/httpwire"
)

// Session は1接続分の状態
// IDはStreamable HTTPダイアレクトのみが使用し、受け入れ時に一度だけ
// 採番して全レスポンスヘッダにエコーする
type Session struct {
	ID string
}

// Dialect はワイヤプロトコル1種類分の戦略
//
// ソケットI/O・タイムアウト・停止処理は接続ハンドラが共通で持ち、
// フレーミングとメッセージ処理だけをダイアレクトが差し替える
type Dialect interface {
	// Name はログ用のダイアレクト名
	Name() string

	// NewSession は接続受け入れ時のセッション状態を生成する
	NewSession() *Session

	// TryExtract はバッファから完全なメッセージを取り出す
	// 完全なメッセージがまだ無い場合は空を返し、未消費バイトは
	// バッファに残す
	TryExtract(buf *buffer.Buffer) [][]byte

	// Dispatch は1メッセージを処理してソケットへ書き込むバイト列を返す
	// nilは「応答なし」を意味する
	Dispatch(ctx context.Context, session *Session, message []byte) []byte

	// Persistent は1接続で複数メッセージを処理するかどうか
	// falseの場合、最初のDispatch後に接続を閉じる
	Persistent() bool

	// HeartbeatInterval はハートビート間隔（0以下で無効）
	HeartbeatInterval() time.Duration

	// Heartbeat はハートビートメッセージを生成する
	Heartbeat(now time.Time) []byte
}

// LegacyDialect は改行区切りJSONダイアレクト
type LegacyDialect struct {
	dispatcher *dispatch.Legacy
	interval   time.Duration
}

// NewLegacyDialect はLegacyDialectを生成
func NewLegacyDialect(dispatcher *dispatch.Legacy, heartbeatInterval time.Duration) *LegacyDialect {
	return &LegacyDialect{
		dispatcher: dispatcher,
		interval:   heartbeatInterval,
	}
}

// Name はダイアレクト名を返す
func (d *LegacyDialect) Name() string { return "legacy" }

// NewSession はセッションを生成（レガシーはセッションIDを持たない）
func (d *LegacyDialect) NewSession() *Session { return &Session{} }

// TryExtract は改行区切りの完全なメッセージを取り出す
func (d *LegacyDialect) TryExtract(buf *buffer.Buffer) [][]byte {
	lines := buf.ExtractLines()
	if len(lines) == 0 {
		return nil
	}
	messages := make([][]byte, len(lines))
	for i, line := range lines {
		messages[i] = []byte(line)
	}
	return messages
}

// Dispatch は1行を処理して改行終端の応答を返す
func (d *LegacyDialect) Dispatch(ctx context.Context, session *Session, message []byte) []byte {
	return d.dispatcher.Handle(ctx, string(message))
}

// Persistent は常にtrue（切断されるまでメッセージを処理し続ける）
func (d *LegacyDialect) Persistent() bool { return true }

// HeartbeatInterval はハートビート間隔を返す
func (d *LegacyDialect) HeartbeatInterval() time.Duration { return d.interval }

// Heartbeat はハートビートメッセージを生成
func (d *LegacyDialect) Heartbeat(now time.Time) []byte {
	return d.dispatcher.Heartbeat(now)
}

// StreamableDialect はHTTP/JSON-RPC+SSEダイアレクト
// 1接続につき1リクエストを処理して閉じる
type StreamableDialect struct {
	dispatcher *dispatch.MCP
	logger     *slog.Logger
}

// NewStreamableDialect はStreamableDialectを生成
func NewStreamableDialect(dispatcher *dispatch.MCP, logger *slog.Logger) *StreamableDialect {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamableDialect{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Name はダイアレクト名を返す
func (d *StreamableDialect) Name() string { return "streamable" }

// NewSession は接続ごとのセッションIDを採番する
func (d *StreamableDialect) NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// TryExtract はヘッダ終端とContent-Lengthからリクエスト全体を取り出す
//
// ヘッダ終端がまだ無い、またはボディが揃っていない場合は空を返す。
// 状態は持たず、呼び出しごとにバッファを走査し直す
func (d *StreamableDialect) TryExtract(buf *buffer.Buffer) [][]byte {
	bodyStart, ok := buf.FindHTTPBodyStart()
	if !ok {
		return nil
	}

	contentLength := httpwire.ParseContentLength(buf.Bytes()[:bodyStart])
	if buf.Len() < bodyStart+contentLength {
		return nil
	}

	return [][]byte{buf.Consume(bodyStart + contentLength)}
}

// Dispatch は1リクエストを処理してエンコード済みHTTPレスポンスを返す
func (d *StreamableDialect) Dispatch(ctx context.Context, session *Session, message []byte) []byte {
	req, err := httpwire.ParseRequest(message)
	if err != nil {
		d.logger.Warn("received malformed http request", "error", err)
		return httpwire.NewTextReply(400, "Invalid HTTP request").Encode(session.ID)
	}

	// GETは空のSSEストリームを開くだけでディスパッチしない
	if req.Method == "GET" {
		return httpwire.NewSSEStreamReply().Encode(session.ID)
	}

	if req.Method != "POST" {
		return httpwire.NewTextReply(405, "Method Not Allowed").Encode(session.ID)
	}

	return d.dispatcher.Handle(ctx, req.Body).Encode(session.ID)
}

// Persistent は常にfalse（1リクエストで閉じる）
func (d *StreamableDialect) Persistent() bool { return false }

// HeartbeatInterval はハートビート無効を返す
func (d *StreamableDialect) HeartbeatInterval() time.Duration { return 0 }

// Heartbeat は何も生成しない
func (d *StreamableDialect) Heartbeat(now time.Time) []byte { return nil }
