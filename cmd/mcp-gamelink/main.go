package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/brbranch/gamelink_mcp/internal/bootstrap"
	"github.com/brbranch/gamelink_mcp/internal/transport/tcp"
)

// ビルド時変数（-ldflags で変更可能）
var version = "dev"

// Options はCLI引数オプション
// ホストとポートのゼロ値は「設定ファイル/デフォルト値を使う」を意味する
type Options struct {
	Host       string
	LegacyPort int
	MCPPort    int
	ConfigPath string
}

func main() {
	var err error

	// 引数なしの場合はserveをデフォルト実行
	if len(os.Args) < 2 {
		err = run([]string{})
	} else {
		switch os.Args[1] {
		case "serve":
			err = run(os.Args[1:])
		case "call":
			err = runCallCmd(os.Args[2:])
		case "version", "-v", "--version":
			printVersion()
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// printUsage prints the usage information
func printUsage() {
	fmt.Println(`mcp-gamelink - MCP TCP bridge for game engine automation

Usage:
  mcp-gamelink <command> [options]

Commands:
  serve     Start both TCP listeners (legacy + streamable HTTP)
  call      Call a tool over the legacy endpoint (oneshot command)
  version   Print version information
  help      Print this help message

Serve Options:
  --host string            Listen host (default: from config, 127.0.0.1)
  --legacy-port int        Newline-delimited JSON port (default: 55557)
  --mcp-port int           Streamable HTTP port (default: 55558)
  -c, --config string      Config file path

Call Options:
  --host string            Server host (default: from config, 127.0.0.1)
  -p, --port int           Legacy endpoint port (default: 55557)
  --params string          Tool parameters as a JSON object (default: {})
  --timeout float          Reply timeout in seconds (default: 5)
  -c, --config string      Config file path

Examples:
  mcp-gamelink serve
  mcp-gamelink serve --legacy-port 55567 --mcp-port 55568
  mcp-gamelink call ping
  mcp-gamelink call spawn_actor --params '{"name":"Cube1","type":"StaticMeshActor"}'`)
}

// printVersion prints the version information
func printVersion() {
	fmt.Printf("mcp-gamelink version %s\n", version)
}

// run は実際の処理を行う（テスト容易性のため分離）
func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalHandler()
	defer cancel()

	return runServe(ctx, opts)
}

// parseFlags は引数をパースしてOptionsを返す
func parseFlags(args []string) (*Options, error) {
	fs := flag.NewFlagSet("mcp-gamelink", flag.ContinueOnError)

	opts := &Options{}
	fs.StringVar(&opts.Host, "host", "", "Listen host")
	fs.IntVar(&opts.LegacyPort, "legacy-port", 0, "Newline-delimited JSON port")
	fs.IntVar(&opts.MCPPort, "mcp-port", 0, "Streamable HTTP port")
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	fs.StringVar(&opts.ConfigPath, "c", "", "Config file path (shorthand)")

	// serveサブコマンド確認（引数なしまたは"serve"で始まる場合のみ許可）
	var flagArgs []string
	if len(args) == 0 {
		flagArgs = []string{}
	} else if args[0] == "serve" {
		flagArgs = args[1:]
	} else {
		return nil, fmt.Errorf("usage: mcp-gamelink serve [options]")
	}

	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}

	// バリデーション（ゼロ値は設定ファイルに委ねる）
	if opts.LegacyPort != 0 && (opts.LegacyPort < 1 || opts.LegacyPort > 65535) {
		return nil, fmt.Errorf("invalid legacy port: %d (must be 1-65535)", opts.LegacyPort)
	}
	if opts.MCPPort != 0 && (opts.MCPPort < 1 || opts.MCPPort > 65535) {
		return nil, fmt.Errorf("invalid mcp port: %d (must be 1-65535)", opts.MCPPort)
	}

	return opts, nil
}

// setupSignalHandler はSIGINT/SIGTERMを受けてcontextをキャンセルする
func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}

// runServe はserveコマンドを実行
func runServe(ctx context.Context, opts *Options) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// bootstrap.Initializeを使用して共通初期化ロジックを実行
	services, cleanup, err := bootstrap.Initialize(opts.ConfigPath, version, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := services.Config

	// CLIフラグは設定ファイルと環境変数より優先
	host := cfg.Server.Host
	if opts.Host != "" {
		host = opts.Host
	}
	legacyPort := cfg.Server.LegacyPort
	if opts.LegacyPort != 0 {
		legacyPort = opts.LegacyPort
	}
	mcpPort := cfg.Server.MCPPort
	if opts.MCPPort != 0 {
		mcpPort = opts.MCPPort
	}
	if legacyPort == mcpPort {
		return fmt.Errorf("legacy port and mcp port must differ: %d", legacyPort)
	}

	legacyServer := tcp.New(listenAddr(host, legacyPort), services.LegacyDialect, cfg, tcp.WithLogger(logger))
	mcpServer := tcp.New(listenAddr(host, mcpPort), services.MCPDialect, cfg, tcp.WithLogger(logger))

	// 両リスナーを並行実行し、どちらかが失敗したら全体を停止する
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- legacyServer.Run(ctx) }()
	go func() { errCh <- mcpServer.Run(ctx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

func listenAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
