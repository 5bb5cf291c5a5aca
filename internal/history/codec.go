package history

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Payloads larger than this are compressed at rest.
const compressThreshold = 4 << 10

const (
	encodingRaw  = ""
	encodingZstd = "zstd"
)

type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &codec{encoder: encoder, decoder: decoder}, nil
}

// encode returns the stored form of payload and its encoding tag.
func (c *codec) encode(payload []byte) ([]byte, string) {
	if len(payload) <= compressThreshold {
		return payload, encodingRaw
	}
	out := c.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
	if len(out) >= len(payload) {
		return payload, encodingRaw
	}
	return out, encodingZstd
}

func (c *codec) decode(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case encodingRaw:
		return data, nil
	case encodingZstd:
		return c.decoder.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}
}
