package bitbuffer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyCodes   = errors.New("empty codes")
	ErrBadRowHeader = errors.New("bad row header")
	ErrBadHex       = errors.New("bad hex data")
	ErrRowTooLong   = errors.New("row too long")
)

// MaxRowBits 单行比特上限，避免畸形输入占用过多内存
const MaxRowBits = 4096

// Parse 解析 rtl_433 codes 记法："{227}aaaaaa.../{12}fff"
// 行之间以 '/' 分隔；省略 {n} 时比特数取 hex 长度*4。
func Parse(codes string) (*BitBuffer, error) {
	s := strings.TrimSpace(codes)
	if s == "" {
		return nil, ErrEmptyCodes
	}
	bb := New()
	for _, part := range strings.Split(s, "/") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bits := -1
		if strings.HasPrefix(part, "{") {
			end := strings.IndexByte(part, '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: %q", ErrBadRowHeader, part)
			}
			n, err := strconv.Atoi(strings.TrimSpace(part[1:end]))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrBadRowHeader, part)
			}
			bits = n
			part = part[end+1:]
		}
		part = strings.TrimPrefix(strings.TrimPrefix(part, "0x"), "0X")
		if len(part)%2 == 1 {
			part += "0"
		}
		data, err := hex.DecodeString(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadHex, err)
		}
		if bits < 0 {
			bits = len(data) * 8
		}
		if bits > MaxRowBits {
			return nil, fmt.Errorf("%w: %d bits", ErrRowTooLong, bits)
		}
		if bits > len(data)*8 {
			return nil, fmt.Errorf("%w: %d bits declared, %d bytes given", ErrBadHex, bits, len(data))
		}
		bb.AddRow(data, bits)
	}
	if bb.NumRows() == 0 {
		return nil, ErrEmptyCodes
	}
	return bb, nil
}

// String 输出 codes 记法，与 Parse 互逆
func (b *BitBuffer) String() string {
	parts := make([]string, 0, len(b.Rows))
	for _, r := range b.Rows {
		parts = append(parts, fmt.Sprintf("{%d}%s", r.Bits, hex.EncodeToString(r.Bytes)))
	}
	return strings.Join(parts, "/")
}
