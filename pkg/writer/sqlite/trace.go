package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/ChrisMcGann/CliqueKey/pkg/trace"
)

// traceCodec stores traces as zstd-compressed little-endian float64 blobs.
type traceCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newTraceCodec() (*traceCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create trace decoder: %w", err)
	}
	return &traceCodec{enc: enc, dec: dec}, nil
}

// Encode returns the compressed blob of tr.
func (c *traceCodec) Encode(tr trace.Trace) []byte {
	buf := make([]byte, len(tr)*8)
	for i, v := range tr {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return c.enc.EncodeAll(buf, nil)
}

// Decode reverses Encode.
func (c *traceCodec) Decode(blob []byte) (trace.Trace, error) {
	buf, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress trace: %w", err)
	}
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("trace blob has %d bytes, not a multiple of 8", len(buf))
	}
	tr := make(trace.Trace, len(buf)/8)
	for i := range tr {
		tr[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return tr, nil
}

func (c *traceCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}

// DecodeTrace decodes a blobTrace column value.
func DecodeTrace(blob []byte) (trace.Trace, error) {
	c, err := newTraceCodec()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Decode(blob)
}
