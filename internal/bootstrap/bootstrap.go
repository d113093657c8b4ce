// Package bootstrap provides common initialization logic for mcp-gamelink.
package bootstrap

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/brbranch/gamelink_mcp/internal/catalog"
	"github.com/brbranch/gamelink_mcp/internal/config"
	"github.com/brbranch/gamelink_mcp/internal/dispatch"
	"github.com/brbranch/gamelink_mcp/internal/executor"
	"github.com/brbranch/gamelink_mcp/internal/metrics"
	"github.com/brbranch/gamelink_mcp/internal/model"
	"github.com/brbranch/gamelink_mcp/internal/transport/tcp"
)

// Services は初期化されたコンポーネント群を保持
// リスナー本体はダイアレクトとアドレスから呼び出し側が構築する
type Services struct {
	Config        *model.Config
	Catalog       []model.Tool
	Executor      executor.Executor
	Metrics       *metrics.Metrics
	LegacyDialect *tcp.LegacyDialect
	MCPDialect    *tcp.StreamableDialect
}

// Initialize は設定を読み込み、2ダイアレクト分のディスパッチ経路を構築する
func Initialize(configPath, version string, logger *slog.Logger) (*Services, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	// 設定マネージャーの作成
	configManager, err := config.NewManager(configPath, version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	// 設定ファイルの読み込み
	if err := configManager.Load(); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configManager.GetConfig()

	// 環境変数による上書きはファイルより優先
	config.ApplyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	// 1. コマンド実行層の初期化
	registry := executor.NewRegistry()
	stats := metrics.NewMetrics()
	recorders := []metrics.Recorder{stats}

	// コマンドログの初期化（パス未設定なら無効）
	var commandLog *metrics.CommandLog
	if cfg.Log.CommandLogPath != "" {
		// DBファイルの親ディレクトリを作成
		if err := config.EnsureDir(filepath.Dir(cfg.Log.CommandLogPath)); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		commandLog, err = metrics.NewCommandLog(cfg.Log.CommandLogPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open command log: %w", err)
		}
		recorders = append(recorders, commandLog)
	}

	exec := metrics.NewRecordingExecutor(registry, recorders...)

	// 2. ディスパッチャの初期化（ツールカタログは両ダイアレクトで共有）
	tools := catalog.Build()
	legacyDispatcher := dispatch.NewLegacy(cfg, tools, exec, logger)
	mcpDispatcher := dispatch.NewMCP(cfg, tools, exec, logger)

	cleanup := func() {
		if commandLog != nil {
			commandLog.Close()
		}
	}

	return &Services{
		Config:        cfg,
		Catalog:       tools,
		Executor:      exec,
		Metrics:       stats,
		LegacyDialect: tcp.NewLegacyDialect(legacyDispatcher, cfg.HeartbeatDuration()),
		MCPDialect:    tcp.NewStreamableDialect(mcpDispatcher, logger),
	}, cleanup, nil
}
