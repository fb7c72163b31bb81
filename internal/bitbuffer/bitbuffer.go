// Package bitbuffer 提供已解调比特行的容器及线路编码原语（取反、曼彻斯特解码、字节内位反转）。
package bitbuffer

// Row 单行比特数据，Bytes 按 MSB 优先存放，末字节未使用的低位保持为 0
type Row struct {
	Bits  int
	Bytes []byte
}

// BitBuffer 一次采集得到的多行比特数据
type BitBuffer struct {
	Rows []Row
}

// New 创建空缓冲
func New() *BitBuffer { return &BitBuffer{} }

// NumRows 行数
func (b *BitBuffer) NumRows() int { return len(b.Rows) }

// BitsPerRow 第 i 行的比特数
func (b *BitBuffer) BitsPerRow(i int) int {
	if i < 0 || i >= len(b.Rows) {
		return 0
	}
	return b.Rows[i].Bits
}

// AddRow 追加一行（复制 data，按 bits 截断并清零未用位）
func (b *BitBuffer) AddRow(data []byte, bits int) {
	if bits < 0 {
		bits = 0
	}
	n := (bits + 7) / 8
	row := Row{Bits: bits, Bytes: make([]byte, n)}
	copy(row.Bytes, data)
	if rem := bits % 8; rem != 0 && n > 0 {
		row.Bytes[n-1] &= 0xFF << (8 - rem)
	}
	b.Rows = append(b.Rows, row)
}

// AddBit 向最后一行追加一个比特；无行时自动新建
func (b *BitBuffer) AddBit(bit byte) {
	if len(b.Rows) == 0 {
		b.Rows = append(b.Rows, Row{})
	}
	r := &b.Rows[len(b.Rows)-1]
	if r.Bits%8 == 0 {
		r.Bytes = append(r.Bytes, 0)
	}
	if bit&1 == 1 {
		r.Bytes[r.Bits/8] |= 0x80 >> (r.Bits % 8)
	}
	r.Bits++
}

// Clone 深拷贝
func (b *BitBuffer) Clone() *BitBuffer {
	out := &BitBuffer{Rows: make([]Row, len(b.Rows))}
	for i, r := range b.Rows {
		out.Rows[i] = Row{Bits: r.Bits, Bytes: append([]byte(nil), r.Bytes...)}
	}
	return out
}

// BitAt 读取第 row 行第 pos 位，越界返回 0
func (b *BitBuffer) BitAt(row, pos int) byte {
	if row < 0 || row >= len(b.Rows) {
		return 0
	}
	r := b.Rows[row]
	if pos < 0 || pos >= r.Bits {
		return 0
	}
	return (r.Bytes[pos/8] >> (7 - pos%8)) & 1
}

// Invert 所有行逐位取反，末字节未使用的位保持为 0
func (b *BitBuffer) Invert() {
	for i := range b.Rows {
		r := &b.Rows[i]
		if r.Bits == 0 {
			continue
		}
		for j := range r.Bytes {
			r.Bytes[j] = ^r.Bytes[j]
		}
		if rem := r.Bits % 8; rem != 0 {
			r.Bytes[len(r.Bytes)-1] &= 0xFF << (8 - rem)
		}
	}
}

// ManchesterDecode 从第 row 行 start 位开始按比特对解码，每对 (b1,b2) 输出 b2；
// 遇到 b1==b2 的非法对即停止。max>0 时最多输出 max 位。
// 输入需已按 G.E. Thomas 约定先行取反，此时 01->1、10->0。
func (b *BitBuffer) ManchesterDecode(row, start, max int) *BitBuffer {
	out := &BitBuffer{Rows: []Row{{}}}
	length := b.BitsPerRow(row)
	if max > 0 && length > start+max*2 {
		length = start + max*2
	}
	for pos := start; pos+1 < length; pos += 2 {
		b1 := b.BitAt(row, pos)
		b2 := b.BitAt(row, pos+1)
		if b1 == b2 {
			break
		}
		out.AddBit(b2)
	}
	return out
}

// Reflect8 反转单字节内的比特顺序
func Reflect8(x byte) byte {
	x = (x&0xF0)>>4 | (x&0x0F)<<4
	x = (x&0xCC)>>2 | (x&0x33)<<2
	x = (x&0xAA)>>1 | (x&0x55)<<1
	return x
}

// ReflectBytes 对 buf 前 n 个字节逐字节反转比特顺序（原地）
func ReflectBytes(buf []byte, n int) {
	if n > len(buf) {
		n = len(buf)
	}
	for i := 0; i < n; i++ {
		buf[i] = Reflect8(buf[i])
	}
}
