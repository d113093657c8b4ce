// Package tcp は生TCPソケット上のリスナーループと接続処理を実装する。
//
// 設計上、1リスナーにつき同時クライアントは1つ。受け入れた接続は
// リスナーループと同じゴルーチンで完了まで処理し、その間は次の
// クライアントを受け入れない。単一の信頼済みクライアント向けの
// 制御チャネルとして意図的に直列化している
package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/brbranch/gamelink_mcp/internal/model"
)

// ポーリング間隔のデフォルト値
const (
	DefaultAcceptPollInterval = 100 * time.Millisecond
	DefaultReadPollInterval   = 5 * time.Millisecond
)

// Server は1ダイアレクト分のTCPリスナー
type Server struct {
	addr    string
	dialect Dialect
	config  *model.Config
	logger  *slog.Logger

	acceptPollInterval time.Duration
	readPollInterval   time.Duration

	mu       sync.Mutex
	listener *net.TCPListener
}

// Option はサーバーオプション
type Option func(*Server)

// WithLogger はロガーを設定
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAcceptPollInterval は接続受け入れのポーリング間隔を設定（テスト用）
func WithAcceptPollInterval(interval time.Duration) Option {
	return func(s *Server) {
		s.acceptPollInterval = interval
	}
}

// WithReadPollInterval は読み取りのポーリング間隔を設定（テスト用）
func WithReadPollInterval(interval time.Duration) Option {
	return func(s *Server) {
		s.readPollInterval = interval
	}
}

// New は新しいServerを生成
func New(addr string, dialect Dialect, config *model.Config, opts ...Option) *Server {
	s := &Server{
		addr:               addr,
		dialect:            dialect,
		config:             config,
		logger:             slog.Default(),
		acceptPollInterval: DefaultAcceptPollInterval,
		readPollInterval:   DefaultReadPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen はリスナーソケットをバインドする
// Runが内部で呼ぶが、実際のバインド先アドレスが必要な場合（ポート0での
// テストなど）は先に呼んでAddrを参照できる
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln.(*net.TCPListener)
	return nil
}

// Addr はバインド済みのアドレスを返す（Listen前はnil）
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run はリスナーループを実行し、contextがキャンセルされるまで
// 接続を受け入れ続ける
//
// 各イテレーションでデッドライン付きのAcceptを行い、受け入れた接続は
// 同期的に完了まで処理する。接続単位のエラーはログに記録するだけで
// ループは継続し、Runがエラーを返すのはバインド失敗時のみ
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	defer func() {
		listener.Close()
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
	}()

	s.logger.Info("listener started", "dialect", s.dialect.Name(), "addr", listener.Addr().String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("listener stopped", "dialect", s.dialect.Name())
			return nil
		default:
		}

		listener.SetDeadline(time.Now().Add(s.acceptPollInterval))
		conn, err := listener.AcceptTCP()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			// Accept失敗はこの接続候補に限った問題として記録し、
			// ループは継続する
			s.logger.Warn("failed to accept connection", "dialect", s.dialect.Name(), "error", err)
			continue
		}

		s.logger.Info("client connected", "dialect", s.dialect.Name(), "remote", conn.RemoteAddr().String())
		s.handleConn(ctx, conn)
		s.logger.Info("client disconnected", "dialect", s.dialect.Name(), "remote", conn.RemoteAddr().String())
	}
}
