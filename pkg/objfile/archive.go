package objfile

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	arMagic      = "!<arch>\n"
	arHeaderSize = 60
)

// ArHdr is a member header of a System V / GNU ar library.
type ArHdr struct {
	Name [16]byte
	Date [12]byte
	Uid  [6]byte
	Gid  [6]byte
	Mode [8]byte
	Size [10]byte
	Fmag [2]byte
}

func readArHdr(b []byte) ArHdr {
	var h ArHdr
	copy(h.Name[:], b[0:16])
	copy(h.Date[:], b[16:28])
	copy(h.Uid[:], b[28:34])
	copy(h.Gid[:], b[34:40])
	copy(h.Mode[:], b[40:48])
	copy(h.Size[:], b[48:58])
	copy(h.Fmag[:], b[58:60])
	return h
}

func (a *ArHdr) HasPrefix(s string) bool {
	return strings.HasPrefix(string(a.Name[:]), s)
}

func (a *ArHdr) IsStrtab() bool {
	return a.HasPrefix("// ")
}

func (a *ArHdr) IsSymtab() bool {
	return a.HasPrefix("/ ") || a.HasPrefix("/SYM64/ ")
}

func (a *ArHdr) GetSize() (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(a.Size[:])))
}

func (a *ArHdr) ReadName(strTab []byte) (string, bool) {
	// long filename
	if a.HasPrefix("/") {
		start, err := strconv.Atoi(strings.TrimSpace(string(a.Name[1:])))
		if err != nil || start < 0 || start >= len(strTab) {
			return "", false
		}
		end := bytes.Index(strTab[start:], []byte("/\n"))
		if end < 0 {
			return "", false
		}
		return string(strTab[start : start+end]), true
	}

	// short filename
	name := string(a.Name[:])
	if end := strings.IndexByte(name, '/'); end >= 0 {
		return name[:end], true
	}
	return strings.TrimSpace(name), true
}

// ReadArchiveMembers splits a library into its modules, skipping the symbol
// index and the long-name table.
func ReadArchiveMembers(file *File) ([]*File, error) {
	pos := len(arMagic)

	var strTab []byte
	var files []*File
	// members are padded to an even offset
	for len(file.Contents)-pos > 1 {
		if pos%2 == 1 {
			pos++
		}
		if len(file.Contents)-pos < arHeaderSize {
			return nil, inputError(file, "truncated library member header at offset %d", pos)
		}

		hdr := readArHdr(file.Contents[pos:])
		if string(hdr.Fmag[:]) != "`\n" {
			return nil, inputError(file, "corrupt library member header at offset %d", pos)
		}
		size, err := hdr.GetSize()
		if err != nil || size < 0 {
			return nil, inputError(file, "bad library member size at offset %d", pos)
		}
		dataStart := pos + arHeaderSize
		pos = dataStart + size
		if pos > len(file.Contents) {
			return nil, inputError(file, "library member at offset %d runs past the end", dataStart-arHeaderSize)
		}
		contents := file.Contents[dataStart:pos]

		if hdr.IsSymtab() {
			continue
		} else if hdr.IsStrtab() {
			strTab = contents
			continue
		}

		name, ok := hdr.ReadName(strTab)
		if !ok {
			return nil, inputError(file, "bad long member name at offset %d", dataStart-arHeaderSize)
		}
		files = append(files, &File{
			Name:     name,
			Contents: contents,
			Parent:   file,
		})
	}

	return files, nil
}
