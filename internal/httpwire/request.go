// Package httpwire は生ソケット上のHTTP/1.1リクエストの解析と
// レスポンスのエンコードを提供する。
//
// net/httpではなく手書きのコーデックなのは、ヘッダ終端の揺らぎ
// （CRLFCRLFと素のLFLF）への寛容さ、Content-Lengthによる組み立て、
// 単発リクエストでの即時クローズといったワイヤ仕様を、同じ生TCP
// ソケット上のもう一方のダイアレクトと共存させる必要があるため。
package httpwire

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrMissingTerminator はヘッダ終端が見つからない場合のエラー
	ErrMissingTerminator = errors.New("missing header terminator")
	// ErrBadRequestLine はリクエストラインが不正な場合のエラー
	ErrBadRequestLine = errors.New("invalid request line")
)

// Request は解析済みのHTTPリクエスト
type Request struct {
	Method  string
	Path    string
	headers map[string]string
	Body    []byte
}

// Header はヘッダ値を取得する（名前は大文字小文字を区別しない）
func (r *Request) Header(name string) (string, bool) {
	value, ok := r.headers[strings.ToLower(name)]
	return value, ok
}

// ContentLength はContent-Lengthヘッダの値を返す
// 無い場合や数値でない場合は0
func (r *Request) ContentLength() int {
	value, ok := r.Header("Content-Length")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseContentLength はヘッダ部のバイト列からContent-Lengthを取り出す
// ボディ本体が届く前の組み立て段階で使う。見つからなければ0
func ParseContentLength(headerBytes []byte) int {
	for _, line := range splitLines(headerBytes) {
		key, value, ok := splitHeaderLine(line)
		if ok && strings.EqualFold(key, "Content-Length") {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return 0
			}
			return n
		}
	}
	return 0
}

// ParseRequest は生のリクエストバイト列を解析する
//
// ヘッダ終端はCRLFCRLFを優先し、素のLFLFにフォールバックする。
// リクエストラインはメソッドとパスの2要素以上を必須とする
func ParseRequest(raw []byte) (*Request, error) {
	headerEnd := bytes.Index(raw, []byte("\r\n\r\n"))
	delimiterLength := 4
	if headerEnd < 0 {
		headerEnd = bytes.Index(raw, []byte("\n\n"))
		delimiterLength = 2
	}
	if headerEnd < 0 {
		return nil, ErrMissingTerminator
	}

	headerPart := raw[:headerEnd]
	body := raw[headerEnd+delimiterLength:]

	lines := splitLines(headerPart)
	if len(lines) == 0 {
		return nil, ErrBadRequestLine
	}

	requestLineParts := strings.Fields(lines[0])
	if len(requestLineParts) < 2 {
		return nil, ErrBadRequestLine
	}

	req := &Request{
		Method:  strings.ToUpper(requestLineParts[0]),
		Path:    requestLineParts[1],
		headers: make(map[string]string),
		Body:    body,
	}

	for _, line := range lines[1:] {
		if key, value, ok := splitHeaderLine(line); ok {
			req.headers[strings.ToLower(key)] = value
		}
	}

	return req, nil
}

// splitLines はCRLFまたはLF区切りで行に分割する（空行は除く）
func splitLines(data []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitHeaderLine は "Key: Value" 形式の行を分割する
func splitHeaderLine(line string) (key, value string, ok bool) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:colon]), strings.TrimSpace(line[colon+1:]), true
}
