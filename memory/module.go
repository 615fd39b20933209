package memory

// memoryModule encodes a core module that defines one memory with the given
// minimum and maximum page counts and exports it as "memory".
func memoryModule(minPages, maxPages uint32) []byte {
	var limits []byte
	if maxPages > 0 {
		limits = append(limits, 0x01)
		limits = appendLEB128u(limits, minPages)
		limits = appendLEB128u(limits, maxPages)
	} else {
		limits = append(limits, 0x00)
		limits = appendLEB128u(limits, minPages)
	}

	memSec := appendLEB128u(nil, 1)
	memSec = append(memSec, limits...)

	expSec := appendLEB128u(nil, 1)
	expSec = appendLEB128u(expSec, uint32(len(exportName)))
	expSec = append(expSec, exportName...)
	expSec = append(expSec, 0x02, 0x00) // kind memory, index 0

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = appendSection(out, 5, memSec)
	out = appendSection(out, 7, expSec)
	return out
}

const exportName = "memory"

func appendSection(out []byte, id byte, data []byte) []byte {
	out = append(out, id)
	out = appendLEB128u(out, uint32(len(data)))
	return append(out, data...)
}

func appendLEB128u(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}
