package output

import (
	"bytes"
	"io"

	"bankld/pkg/linker"
)

// WriteBinary writes the raw image: every imaged section copied to its image
// offset, gaps filled with the configured fill byte. Sections in pools that
// are not imaged are left out.
func WriteBinary(w io.Writer, ctx *linker.Context) (int64, error) {
	chunks, err := imageChunks(ctx)
	if err != nil {
		return 0, err
	}

	var size int64
	for i := range chunks {
		if end := chunks[i].End(); end > size {
			size = end
		}
	}

	buf := bytes.Repeat([]byte{ctx.Config.Fill}, int(size))
	for i := range chunks {
		chunks[i].CopyBuf(buf)
	}

	n, err := w.Write(buf)
	return int64(n), err
}
