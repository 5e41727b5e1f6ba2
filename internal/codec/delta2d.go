package codec

// Rows are consecutive runs of rowLen elements along the chunk's last axis.
// Encoding replaces every row but the first with its difference to the
// previous row, walking backwards so each step still sees original values.

func delta2dEncode(lanes []int64, rowLen int) {
	if rowLen <= 0 {
		return
	}
	rows := len(lanes) / rowLen
	for r := rows - 1; r >= 1; r-- {
		cur := lanes[r*rowLen : (r+1)*rowLen]
		prev := lanes[(r-1)*rowLen : r*rowLen]
		for c := range cur {
			cur[c] -= prev[c]
		}
	}
}

func delta2dDecode(lanes []int64, rowLen int) {
	if rowLen <= 0 {
		return
	}
	rows := len(lanes) / rowLen
	for r := 1; r < rows; r++ {
		cur := lanes[r*rowLen : (r+1)*rowLen]
		prev := lanes[(r-1)*rowLen : r*rowLen]
		for c := range cur {
			cur[c] += prev[c]
		}
	}
}

func xor2dEncode(bits []uint64, rowLen int) {
	if rowLen <= 0 {
		return
	}
	rows := len(bits) / rowLen
	for r := rows - 1; r >= 1; r-- {
		cur := bits[r*rowLen : (r+1)*rowLen]
		prev := bits[(r-1)*rowLen : r*rowLen]
		for c := range cur {
			cur[c] ^= prev[c]
		}
	}
}

func xor2dDecode(bits []uint64, rowLen int) {
	if rowLen <= 0 {
		return
	}
	rows := len(bits) / rowLen
	for r := 1; r < rows; r++ {
		cur := bits[r*rowLen : (r+1)*rowLen]
		prev := bits[(r-1)*rowLen : r*rowLen]
		for c := range cur {
			cur[c] ^= prev[c]
		}
	}
}
