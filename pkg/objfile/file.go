// Package objfile reads object modules and libraries of them into a link
// context.
package objfile

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"

	"bankld/pkg/errext"
	"bankld/pkg/errext/exitcodes"
	"bankld/pkg/linker"
)

// File is one input: a module on disk or a member of a library.
type File struct {
	Name     string
	Contents []byte
	Parent   *File
}

func NewFile(fs afero.Fs, path string) (*File, error) {
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(fmt.Errorf("reading input: %w", err), exitcodes.IO)
	}
	return &File{Name: path, Contents: contents}, nil
}

// Path names the file for diagnostics, including the library it came from.
func (f *File) Path() string {
	if f.Parent != nil {
		return f.Parent.Path() + "(" + f.Name + ")"
	}
	return f.Name
}

type FileType uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeModule
	FileTypeArchive
)

func GetFileType(contents []byte) FileType {
	if bytes.HasPrefix(contents, []byte(arMagic)) {
		return FileTypeArchive
	}
	if len(bytes.TrimSpace(contents)) > 0 {
		return FileTypeModule
	}
	return FileTypeUnknown
}

// ReadInputFiles loads every path into ctx in order. Each module, including
// every library member, gets the next file id.
func ReadInputFiles(ctx *linker.Context, fs afero.Fs, paths []string) error {
	for _, path := range paths {
		file, err := NewFile(fs, path)
		if err != nil {
			return err
		}
		if err := ReadFile(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func ReadFile(ctx *linker.Context, file *File) error {
	switch GetFileType(file.Contents) {
	case FileTypeModule:
		return readModule(ctx, file)
	case FileTypeArchive:
		members, err := ReadArchiveMembers(file)
		if err != nil {
			return err
		}
		for _, member := range members {
			if GetFileType(member.Contents) != FileTypeModule {
				return inputError(member, "library member is not an object module")
			}
			if err := readModule(ctx, member); err != nil {
				return err
			}
		}
		return nil
	}
	return inputError(file, "empty or unknown input file")
}

func inputError(file *File, format string, args ...any) error {
	err := fmt.Errorf("%s: %s", file.Path(), fmt.Sprintf(format, args...))
	return errext.WithExitCodeIfNone(err, exitcodes.InvalidInput)
}
