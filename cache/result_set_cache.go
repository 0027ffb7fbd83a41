package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// CompressionCodec selects the lossless compressor ResultSetCache uses for
// payloads above its threshold.
type CompressionCodec string

const (
	CodecZstd   CompressionCodec = "zstd"
	CodecSnappy CompressionCodec = "snappy"
)

type compressedPayload struct {
	Compressed bool
	Codec      CompressionCodec
	Data       []byte
}

// ResultSetCache wraps Cache to transparently compress payloads larger
// than Threshold bytes, storing {compressed, data} and decompressing on
// read (spec §4.5). Malformed or uncompressible entries return absent and
// are logged rather than surfaced as an error, matching the cache layer's
// "treat as miss" error policy (spec §7).
type ResultSetCache struct {
	base      *Cache
	Threshold int
	Codec     CompressionCodec
	logger    func(format string, args ...any)
}

// NewResultSetCache wraps base, compressing payloads over threshold bytes
// using codec. A nil logger silences malformed-entry warnings.
func NewResultSetCache(base *Cache, threshold int, codec CompressionCodec, logger func(format string, args ...any)) *ResultSetCache {
	if logger == nil {
		logger = func(string, ...any) {}
	}
	return &ResultSetCache{base: base, Threshold: threshold, Codec: codec, logger: logger}
}

// Set stores rows for key, tagged with "table:<tableName>" so a whole
// table's cached result sets can be invalidated together.
func (r *ResultSetCache) Set(key, tableName string, rows []map[string]any, ttlSeconds int) error {
	raw, err := encodeRows(rows)
	if err != nil {
		return err
	}
	payload := compressedPayload{Data: raw}
	if len(raw) > r.Threshold {
		compressed, err := compress(r.Codec, raw)
		if err != nil {
			return err
		}
		payload = compressedPayload{Compressed: true, Codec: r.Codec, Data: compressed}
	}
	r.base.Set(key, payload, time.Duration(ttlSeconds)*time.Second)
	r.base.Tag(key, "table:"+tableName)
	return nil
}

// Get retrieves and decompresses a previously cached result set. Malformed
// payloads are logged and treated as a cache miss.
func (r *ResultSetCache) Get(key string) ([]map[string]any, bool) {
	v, ok := r.base.Get(key)
	if !ok {
		return nil, false
	}
	payload, ok := v.(compressedPayload)
	if !ok {
		r.logger("result set cache: malformed entry for key %q", key)
		return nil, false
	}
	raw := payload.Data
	if payload.Compressed {
		decompressed, err := decompress(payload.Codec, raw)
		if err != nil {
			r.logger("result set cache: failed to decompress key %q: %v", key, err)
			return nil, false
		}
		raw = decompressed
	}
	rows, err := decodeRows(raw)
	if err != nil {
		r.logger("result set cache: failed to decode key %q: %v", key, err)
		return nil, false
	}
	return rows, true
}

// InvalidateTable removes every cached result set tagged with tableName.
func (r *ResultSetCache) InvalidateTable(tableName string) int {
	return r.base.InvalidateTag("table:" + tableName)
}

// Statistics exposes the wrapped base cache's statistics.
func (r *ResultSetCache) Statistics() Statistics {
	return r.base.Statistics()
}

func compress(codec CompressionCodec, raw []byte) ([]byte, error) {
	switch codec {
	case CodecSnappy:
		return snappy.Encode(nil, raw), nil
	case CodecZstd, "":
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("result set cache: zstd writer: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	default:
		return nil, fmt.Errorf("result set cache: unknown codec %q", codec)
	}
}

func decompress(codec CompressionCodec, raw []byte) ([]byte, error) {
	switch codec {
	case CodecSnappy:
		return snappy.Decode(nil, raw)
	case CodecZstd, "":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("result set cache: zstd reader: %w", err)
		}
		defer dec.Close()
		return dec.DecodeAll(raw, nil)
	default:
		return nil, fmt.Errorf("result set cache: unknown codec %q", codec)
	}
}

func encodeRows(rows []map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rows); err != nil {
		return nil, fmt.Errorf("result set cache: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRows(raw []byte) ([]map[string]any, error) {
	var rows []map[string]any
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rows); err != nil {
		return nil, fmt.Errorf("result set cache: decode: %w", err)
	}
	return rows, nil
}
