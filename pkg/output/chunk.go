// Package output writes the result of a link: raw images, relocatable
// images and map files.
package output

import (
	"fmt"
	"sort"

	"bankld/pkg/errext"
	"bankld/pkg/errext/exitcodes"
	"bankld/pkg/linker"
	"bankld/pkg/utils"
)

// Chunk is a placed section seen from the image: where its bytes go in the
// output file.
type Chunk struct {
	Name   string
	Bank   int64
	Addr   int64
	Offset int64
	Size   int64

	sec *linker.Section
}

func NewChunk(sec *linker.Section) Chunk {
	utils.Assert(sec.ImageOffset.Valid)
	return Chunk{
		Name:   sec.Name,
		Bank:   sec.FinalBank,
		Addr:   sec.FinalAddr,
		Offset: sec.ImageOffset.Int64,
		Size:   sec.Size,
		sec:    sec,
	}
}

func (c *Chunk) End() int64 {
	return c.Offset + c.Size
}

func (c *Chunk) CopyBuf(buf []byte) {
	copy(buf[c.Offset:c.End()], c.sec.Data)
}

// imageChunks collects the placed sections that have bytes in the image, in
// image order, and rejects two of them claiming the same bytes.
func imageChunks(ctx *linker.Context) ([]Chunk, error) {
	secs := utils.RemoveIf(ctx.Placed(), func(sec *linker.Section) bool {
		return !sec.ImageOffset.Valid || sec.Data == nil || sec.Size == 0
	})
	chunks := make([]Chunk, 0, len(secs))
	for _, sec := range secs {
		chunks = append(chunks, NewChunk(sec))
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Offset < chunks[j].Offset
	})

	for i := 1; i < len(chunks); i++ {
		prev, cur := &chunks[i-1], &chunks[i]
		if cur.Offset < prev.End() {
			err := fmt.Errorf("sections %s and %s overlap at image offset 0x%x", prev.Name, cur.Name, cur.Offset)
			return nil, errext.WithExitCodeIfNone(err, exitcodes.Placement)
		}
	}
	return chunks, nil
}
