// Package executor はプロトコルコアが呼び出すコマンド実行側の境界を定義する。
//
// コアは名前と引数オブジェクトを渡し、JSON文字列を受け取るだけで、
// 個々のコマンドの意味は知らない。ホストアプリケーションはRegistryに
// ハンドラを登録してこの境界を実装する。
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Executor はコマンド実行側のインターフェース
// 戻り値のJSON文字列は status ("success"/"error") または success (bool) を
// 含むオブジェクトであることが期待される
type Executor interface {
	ExecuteCommand(ctx context.Context, name string, args map[string]any) (string, error)
}

// Func は単一コマンドのハンドラ
// 戻り値は成功エンベロープの result フィールドにそのまま入る
type Func func(ctx context.Context, args map[string]any) (any, error)

// Registry は名前からハンドラへのディスパッチを行うExecutor実装
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Func
}

// NewRegistry は新しいRegistryを生成する
// 接続性確認用の ping ハンドラを最初から登録しておく
func NewRegistry() *Registry {
	r := &Registry{
		handlers: make(map[string]Func),
	}
	r.Register("ping", func(ctx context.Context, args map[string]any) (any, error) {
		return map[string]any{"message": "pong"}, nil
	})
	return r
}

// Register はハンドラを登録する
// 同名のハンドラは上書きされる
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Names は登録済みコマンド名をソート済みで返す
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteCommand はコマンドを実行し結果をJSON文字列で返す
//
// 未知のコマンドとハンドラの失敗はエラーエンベロープとして返し、
// Goのエラーとしては返さない。エラー戻り値はエンベロープの
// シリアライズ自体が失敗した場合に限る
func (r *Registry) ExecuteCommand(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	fn, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return encodeEnvelope(map[string]any{
			"status": "error",
			"error":  fmt.Sprintf("Unknown command: %s", name),
		})
	}

	result, err := fn(ctx, args)
	if err != nil {
		return encodeEnvelope(map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
	}

	return encodeEnvelope(map[string]any{
		"status": "success",
		"result": result,
	})
}

// encodeEnvelope はエンベロープをJSON文字列に変換する
func encodeEnvelope(envelope map[string]any) (string, error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to encode command envelope: %w", err)
	}
	return string(data), nil
}
