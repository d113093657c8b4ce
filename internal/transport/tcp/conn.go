package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/brbranch/gamelink_mcp/internal/buffer"
)

// handleConn は受け入れ済みソケット1本の全ライフタイムを処理する
//
// すべての終了パスでソケットを閉じる。終了条件は、対向の切断、
// 致命的なソケットエラー、バッファ上限超過（persistent）、リクエスト
// 組み立てタイムアウト（single-shot）、最初のディスパッチ完了
// （single-shot）、サーバー停止のいずれか
func (s *Server) handleConn(ctx context.Context, conn *net.TCPConn) {
	defer conn.Close()

	s.configureSocket(conn)

	session := s.dialect.NewSession()
	buf := buffer.New()
	chunk := make([]byte, s.config.Limits.ChunkSize)

	start := time.Now()
	lastHeartbeat := start
	requestTimeout := s.config.RequestTimeoutDuration()
	heartbeatInterval := s.dialect.HeartbeatInterval()

	for {
		// 停止フラグは各イテレーションで協調的に確認する
		select {
		case <-ctx.Done():
			return
		default:
		}

		// 読み取りはデッドライン付きで行い、タイムアウトを
		// would-block相当として扱う
		conn.SetReadDeadline(time.Now().Add(s.readPollInterval))
		n, readErr := conn.Read(chunk)

		if n > 0 {
			buf.Append(chunk[:n])

			dispatched := false
			for _, message := range s.dialect.TryExtract(buf) {
				reply := s.dialect.Dispatch(ctx, session, message)
				dispatched = true
				if reply == nil {
					continue
				}
				if err := s.sendAll(conn, reply); err != nil {
					s.logger.Warn("socket send failed", "dialect", s.dialect.Name(), "error", err)
					return
				}
			}

			// single-shotダイアレクトは最初のディスパッチで終了
			if dispatched && !s.dialect.Persistent() {
				return
			}
		}

		if readErr != nil {
			var netErr net.Error
			if errors.As(readErr, &netErr) && netErr.Timeout() {
				// データ未着、ポーリング継続
			} else if errors.Is(readErr, io.EOF) {
				return
			} else {
				s.logger.Warn("connection error", "dialect", s.dialect.Name(), "error", readErr)
				return
			}
		}

		if s.dialect.Persistent() {
			// 未消費バイトの上限超過はメモリを抑えるため強制切断
			if buf.Len() > s.config.Limits.MaxBufferSize {
				s.logger.Error("receive buffer exceeded maximum size, closing connection",
					"dialect", s.dialect.Name(),
					"size", buf.Len(),
					"max", s.config.Limits.MaxBufferSize)
				return
			}

			if heartbeatInterval > 0 {
				now := time.Now()
				if now.Sub(lastHeartbeat) >= heartbeatInterval {
					if err := s.sendAll(conn, s.dialect.Heartbeat(now)); err != nil {
						s.logger.Warn("failed to send heartbeat", "error", err)
						return
					}
					lastHeartbeat = now
				}
			}
		} else if requestTimeout > 0 && time.Since(start) > requestTimeout {
			// タイムアウトしたリクエストには応答を返さない
			s.logger.Warn("http request assembly timed out", "dialect", s.dialect.Name())
			return
		}
	}
}

// configureSocket は受け入れ済みソケットの共通設定を行う
func (s *Server) configureSocket(conn *net.TCPConn) {
	conn.SetNoDelay(true)
	if size := s.config.Limits.SocketBufferSize; size > 0 {
		conn.SetReadBuffer(size)
		conn.SetWriteBuffer(size)
	}
}

// sendAll はペイロード全体を書き込む
// 部分書き込みは継続し、エラーまたは進捗ゼロの書き込みは失敗として返す
func (s *Server) sendAll(conn *net.TCPConn, payload []byte) error {
	// 書き込みにはデッドラインを設けず、進捗で判定する
	conn.SetWriteDeadline(time.Time{})

	total := 0
	for total < len(payload) {
		n, err := conn.Write(payload[total:])
		if err != nil {
			return err
		}
		if n <= 0 {
			return errors.New("send made no progress")
		}
		total += n
	}
	return nil
}
