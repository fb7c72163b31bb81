package oria

import "bytes"

// LineDecoder 处理半包/粘包的行解码器：以 '\n' 切分，忽略 '\r' 与空行
type LineDecoder struct {
	buf      []byte
	maxLine  int  // 保护上限，避免畸形数据占用过多内存
	dropping bool // 已超长，丢弃直到下一个换行
	dropped  int
}

// NewLineDecoder 创建行解码器
func NewLineDecoder(maxLine int) *LineDecoder {
	if maxLine <= 0 {
		maxLine = 4096
	}
	return &LineDecoder{maxLine: maxLine}
}

// Dropped 因超长被丢弃的行数（累计）
func (d *LineDecoder) Dropped() int { return d.dropped }

// Feed 追加数据并返回已完整的行
func (d *LineDecoder) Feed(p []byte) []string {
	if len(p) == 0 {
		return nil
	}
	d.buf = append(d.buf, p...)
	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			if len(d.buf) > d.maxLine {
				// 超长且无换行：丢弃已缓存部分，跳过本行剩余内容
				if !d.dropping {
					d.dropped++
				}
				d.dropping = true
				d.buf = d.buf[:0]
			}
			return lines
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]
		if d.dropping {
			d.dropping = false
			continue
		}
		if len(line) > d.maxLine {
			d.dropped++
			continue
		}
		if s := string(bytes.TrimSpace(line)); s != "" {
			lines = append(lines, s)
		}
	}
}
