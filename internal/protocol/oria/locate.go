package oria

import "github.com/taoyao-code/rf-gateway/internal/bitbuffer"

// Locate 返回第一条比特数等于 BitLen 的行号；较短的前导行与噪声行被跳过
func Locate(bb *bitbuffer.BitBuffer) (int, error) {
	if bb != nil {
		for r := 0; r < bb.NumRows(); r++ {
			if bb.BitsPerRow(r) == BitLen {
				return r, nil
			}
		}
	}
	return -1, noCandidate(ReasonNoRow, "no valid row found with %d bits", BitLen)
}
