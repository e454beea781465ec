package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode packs a float32 vector into a little-endian byte slice for BLOB storage.
func Encode(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(x))
	}
	return out
}

// Decode unpacks a little-endian byte slice into a float32 vector.
// Returns an error if the length is not a multiple of 4.
func Decode(b []byte) ([]float32, error) {
	const size = 4
	if len(b)%size != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of %d", len(b), size)
	}
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out, nil
}
