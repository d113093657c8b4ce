// Package buffer は受信バイト列の蓄積とメッセージ抽出を提供する。
//
// 改行区切りダイアレクトとHTTPダイアレクトの両方がこのバッファを共有する。
// 抽出は完全なメッセージのみを返し、未消費バイトは常に次の（未完成の）
// メッセージの先頭から始まる。
package buffer

import "bytes"

// Buffer は追記専用の動的受信バッファ
// サイズ制限はこのコンポーネントの責務ではなく、接続ハンドラ側で行う
type Buffer struct {
	data []byte
}

// New は空のBufferを生成
func New() *Buffer {
	return &Buffer{}
}

// Append はバイト列を末尾に追記する
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// Len は未消費バイト数を返す
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes は未消費バイト列を返す（コピーなし、読み取り専用）
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Consume は先頭nバイトを取り出してバッファから取り除く
// nがバッファ長を超える場合は全体を取り出す
func (b *Buffer) Consume(n int) []byte {
	if n > len(b.data) {
		n = len(b.data)
	}
	consumed := make([]byte, n)
	copy(consumed, b.data[:n])
	b.data = b.data[:copy(b.data, b.data[n:])]
	return consumed
}

// ExtractLines は改行区切りの完全なメッセージをすべて取り出す
//
// 消費したバイト（区切り文字含む）はバッファから取り除き、末尾の
// 区切られていないバイト列は次回の呼び出しまで保持する。改行が
// 1つも無い場合は空のスライスを返す。
//
// JSONペイロード内に生の改行バイトが含まれないことは送信側の
// フレーミング契約であり、ここでは検証しない。
func (b *Buffer) ExtractLines() []string {
	var lines []string
	consumed := 0
	for {
		i := bytes.IndexByte(b.data[consumed:], '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(b.data[consumed:consumed+i]))
		consumed += i + 1
	}
	if consumed > 0 {
		b.Consume(consumed)
	}
	return lines
}

// FindHTTPBodyStart はHTTPヘッダ終端の直後のインデックスを返す
//
// CRLFCRLFを優先して探し、見つからない場合は不正なクライアントに
// 寛容にするため素のLFLFにフォールバックする。どちらも無ければ
// falseを返す。バッファは変更しない。
func (b *Buffer) FindHTTPBodyStart() (int, bool) {
	if i := bytes.Index(b.data, []byte("\r\n\r\n")); i >= 0 {
		return i + 4, true
	}
	if i := bytes.Index(b.data, []byte("\n\n")); i >= 0 {
		return i + 2, true
	}
	return 0, false
}
