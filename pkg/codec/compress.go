package codec

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// zstdEncoderLevel maps the spec's "Zstd level 1-22" knob (spec §6.4
// blob.compression_level) onto the klauspost/compress/zstd library's
// speed-tier enum. level <= 0 means "caller didn't configure one" and
// falls back to the library's default tier.
func zstdEncoderLevel(level int) zstd.EncoderLevel {
	if level <= 0 {
		return zstd.SpeedDefault
	}
	return zstd.EncoderLevelFromZstd(level)
}

// compress applies the named algorithm to data for the columnar codec's
// per-file compression (spec §4.1), keyed by the same
// types.CompressionCode vocabulary the blob store records. The blob
// store does not call it; it has its own zstd helpers. level only
// affects the zstd case.
func compress(code types.CompressionCode, data []byte, level int) ([]byte, error) {
	switch code {
	case types.CompressionNone, "":
		return data, nil
	case types.CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdEncoderLevel(level)))
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "init zstd encoder", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case types.CompressionLz4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "lz4 compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "lz4 finalize", err)
		}
		return buf.Bytes(), nil
	case types.CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "gzip compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "gzip finalize", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, xerrors.Newf(xerrors.Unsupported, "unknown compression code %q", code)
	}
}

// decompress reverses compress.
func decompress(code types.CompressionCode, data []byte) ([]byte, error) {
	switch code {
	case types.CompressionNone, "":
		return data, nil
	case types.CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "init zstd decoder", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "zstd decode", err)
		}
		return out, nil
	case types.CompressionLz4:
		r := lz4.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "lz4 decode", err)
		}
		return out, nil
	case types.CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "gzip open", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Corrupt, "gzip decode", err)
		}
		return out, nil
	default:
		return nil, xerrors.Newf(xerrors.Unsupported, "unknown compression code %q", code)
	}
}
