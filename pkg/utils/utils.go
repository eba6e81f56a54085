package utils

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
)

// Stderr is where fatal diagnostics go. The CLI swaps it for a non-colorable
// writer when colors are disabled.
var Stderr io.Writer = colorable.NewColorableStderr()

var fatalColor = color.New(color.FgRed, color.Bold)

func Fatal(v any) {
	FatalWithCode(v, 1)
}

func FatalWithCode(v any, code int) {
	fmt.Fprintf(Stderr, "bankld:\n\t%s: %v\n", fatalColor.Sprint("fatal"), v)
	os.Exit(code)
}

func Assert(condition bool) {
	if !condition {
		Fatal("Assert Failed")
	}
}

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// AlignTo rounds val up to the next multiple of align. An align of 0 or 1
// leaves val unchanged.
func AlignTo[T Integer](val, align T) T {
	if align <= 1 {
		return val
	}
	rem := val % align
	if rem == 0 {
		return val
	}
	return val + align - rem
}

func RemoveIf[T any](elems []T, condition func(T) bool) []T {
	i := 0
	for _, elem := range elems {
		if condition(elem) {
			continue
		}
		elems[i] = elem
		i++
	}
	return elems[:i]
}

func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
