package network

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode packs a network as a uvarint comparator count followed by uvarint
// (i, j) pairs. The result is what the persistence layer stores.
func Encode(net Network) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64+len(net)*2)
	buf = binary.AppendUvarint(buf, uint64(len(net)))
	for _, c := range net {
		buf = binary.AppendUvarint(buf, uint64(c.I))
		buf = binary.AppendUvarint(buf, uint64(c.J))
	}
	return buf
}

func Decode(data []byte) (Network, error) {
	count, off := binary.Uvarint(data)
	if off <= 0 {
		return nil, fmt.Errorf("failed to read comparator count")
	}
	// Each comparator needs at least two bytes.
	if count > uint64(len(data)-off)/2 {
		return nil, fmt.Errorf("comparator count %d exceeds encoded length %d", count, len(data))
	}
	net := make(Network, 0, count)
	for k := uint64(0); k < count; k++ {
		i, n := binary.Uvarint(data[off:])
		if n <= 0 {
			return nil, fmt.Errorf("failed to read comparator %d", k)
		}
		off += n
		j, n := binary.Uvarint(data[off:])
		if n <= 0 {
			return nil, fmt.Errorf("failed to read comparator %d", k)
		}
		off += n
		if i > math.MaxInt32 || j > math.MaxInt32 {
			return nil, fmt.Errorf("%w: decoded comparator %d has a line index out of range", ErrInvalidComparator, k)
		}
		if i >= j {
			return nil, fmt.Errorf("%w: decoded comparator %d is %d:%d", ErrInvalidComparator, k, i, j)
		}
		net = append(net, Comparator{I: int(i), J: int(j)})
	}
	if off != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after network", len(data)-off)
	}
	return net, nil
}
