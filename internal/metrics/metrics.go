// Package metrics はコマンド実行の集計と記録を提供する。
package metrics

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/brbranch/gamelink_mcp/internal/executor"
)

// Recorder はコマンド実行結果の記録先
type Recorder interface {
	Record(name string, success bool, duration time.Duration)
}

// NopRecorder は何も記録しないRecorder（テスト用）
type NopRecorder struct{}

// Record は何もしない
func (NopRecorder) Record(name string, success bool, duration time.Duration) {}

// CommandStats は1コマンドの集計値
type CommandStats struct {
	Calls         int64         `json:"calls"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"totalDuration"`
}

// Metrics はコマンド別のインメモリ集計
type Metrics struct {
	mu    sync.Mutex
	stats map[string]*CommandStats
}

// NewMetrics は新しいMetricsを生成
func NewMetrics() *Metrics {
	return &Metrics{
		stats: make(map[string]*CommandStats),
	}
}

// Record は1回のコマンド実行を集計に加える
func (m *Metrics) Record(name string, success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[name]
	if !ok {
		s = &CommandStats{}
		m.stats[name] = s
	}
	s.Calls++
	if !success {
		s.Errors++
	}
	s.TotalDuration += duration
}

// Snapshot は現在の集計値のコピーを返す
func (m *Metrics) Snapshot() map[string]CommandStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]CommandStats, len(m.stats))
	for name, s := range m.stats {
		snapshot[name] = *s
	}
	return snapshot
}

// Reset は集計値をクリアする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = make(map[string]*CommandStats)
}

// RecordingExecutor はExecutorをラップして実行結果をRecorderへ流す
type RecordingExecutor struct {
	inner     executor.Executor
	recorders []Recorder
}

// NewRecordingExecutor はRecordingExecutorを生成
func NewRecordingExecutor(inner executor.Executor, recorders ...Recorder) *RecordingExecutor {
	return &RecordingExecutor{
		inner:     inner,
		recorders: recorders,
	}
}

// ExecuteCommand はコマンドを実行し、結果を記録する
func (e *RecordingExecutor) ExecuteCommand(ctx context.Context, name string, args map[string]any) (string, error) {
	start := time.Now()
	raw, err := e.inner.ExecuteCommand(ctx, name, args)
	duration := time.Since(start)

	success := err == nil && envelopeSuccess(raw)
	for _, r := range e.recorders {
		r.Record(name, success, duration)
	}

	return raw, err
}

// envelopeSuccess はコマンド結果エンベロープの成否を判定する
// status文字列（大文字小文字無視で"success"）またはsuccess真偽値を見る。
// パースできない出力は失敗扱い
func envelopeSuccess(raw string) bool {
	var envelope map[string]any
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return false
	}
	if status, ok := envelope["status"].(string); ok {
		return strings.EqualFold(status, "success")
	}
	if success, ok := envelope["success"].(bool); ok {
		return success
	}
	return true
}
