package speech

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// DecompressPayload 按帧头声明的压缩方式还原 payload。
func DecompressPayload(data []byte, method CompressionMethod) ([]byte, error) {
	switch method {
	case NoCompression:
		return data, nil
	case GzipCompression:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader creation failed: %w", err)
		}
		defer reader.Close()

		plain, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip read failed: %w", err)
		}
		return plain, nil
	default:
		return nil, fmt.Errorf("unsupported compression method: %d", method)
	}
}
