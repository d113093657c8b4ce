package metrics

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// CommandLog はSQLiteを使用したコマンド実行ログ
// Recorderとして登録して使う。書き込み失敗はログ出力のみで、
// コマンド実行自体を妨げない
type CommandLog struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

// NewCommandLog はCommandLogを作成する
func NewCommandLog(dbPath string, logger *slog.Logger) (*CommandLog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open command log database: %w", err)
	}

	// WALモードを有効化
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// command_logテーブル作成
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS command_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		success INTEGER NOT NULL,
		duration_ms REAL NOT NULL,
		started_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_command_log_command ON command_log(command);
	CREATE INDEX IF NOT EXISTS idx_command_log_started_at ON command_log(started_at);
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create command_log table: %w", err)
	}

	return &CommandLog{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}, nil
}

// Record は1回のコマンド実行を記録する
func (l *CommandLog) Record(name string, success bool, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return
	}

	successValue := 0
	if success {
		successValue = 1
	}

	_, err := l.db.Exec(
		"INSERT INTO command_log (command, success, duration_ms, started_at) VALUES (?, ?, ?, ?)",
		name,
		successValue,
		float64(duration)/float64(time.Millisecond),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		l.logger.Warn("failed to write command log", "command", name, "error", err)
	}
}

// Close はログをクローズする
func (l *CommandLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil {
		err := l.db.Close()
		l.db = nil
		return err
	}
	return nil
}
