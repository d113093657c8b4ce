package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/brbranch/gamelink_mcp/internal/config"
	"github.com/brbranch/gamelink_mcp/internal/model"
)

// CallOptions holds parsed call command options
type CallOptions struct {
	Host       string
	Port       int
	Params     string
	Timeout    float64
	ConfigPath string
	Tool       string
}

// parseCallFlags parses command line arguments for call command
func parseCallFlags(args []string) (*CallOptions, error) {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // suppress default error output

	opts := &CallOptions{}

	// Long flags
	fs.StringVar(&opts.Host, "host", "", "Server host")
	fs.IntVar(&opts.Port, "port", 0, "Legacy endpoint port")
	fs.StringVar(&opts.Params, "params", "{}", "Tool parameters as a JSON object")
	fs.Float64Var(&opts.Timeout, "timeout", 5, "Reply timeout in seconds")
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")

	// Short flags
	fs.IntVar(&opts.Port, "p", 0, "Legacy endpoint port")
	fs.StringVar(&opts.ConfigPath, "c", "", "Config file path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Tool name from remaining args
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("exactly one tool name is required")
	}
	opts.Tool = fs.Arg(0)

	// Validation
	if opts.Port != 0 && (opts.Port < 1 || opts.Port > 65535) {
		return nil, fmt.Errorf("invalid port: %d (must be 1-65535)", opts.Port)
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be greater than 0")
	}

	return opts, nil
}

// runCallCmd is the entry point for call command
func runCallCmd(args []string) error {
	opts, err := parseCallFlags(args)
	if err != nil {
		return err
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(opts.Params), &params); err != nil {
		return fmt.Errorf("invalid params JSON: %w", err)
	}

	// Resolve host/port from flags, falling back to config
	manager, err := config.NewManager(opts.ConfigPath, version)
	if err != nil {
		return err
	}
	if err := manager.Load(); err != nil {
		return err
	}
	cfg := manager.GetConfig()
	config.ApplyEnvOverrides(cfg)

	host := cfg.Server.Host
	if opts.Host != "" {
		host = opts.Host
	}
	port := cfg.Server.LegacyPort
	if opts.Port != 0 {
		port = opts.Port
	}

	reply, err := callTool(listenAddr(host, port), opts.Tool, params, secondsToDuration(opts.Timeout))
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, reply)
	return nil
}

// callTool sends a single call_tool message over the legacy endpoint and
// returns the first non-heartbeat reply line.
func callTool(addr, tool string, params map[string]any, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	message, err := json.Marshal(&model.LegacyMessage{
		Type:   model.LegacyTypeCallTool,
		Tool:   tool,
		Params: params,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(append(message, '\n')); err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	// Heartbeats may interleave with the reply; skip them
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read reply: %w", err)
		}
		if isHeartbeat(line) {
			continue
		}
		return strings.TrimRight(line, "\n"), nil
	}
}

// isHeartbeat reports whether a reply line is a server heartbeat
func isHeartbeat(line string) bool {
	var message struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(line), &message); err != nil {
		return false
	}
	return message.Type == model.LegacyTypeHeartbeat
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
