// Package image stores compiled Lox programs as msgpack documents (.loxc)
// and rebuilds them on a VM heap.
package image

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"loxmin/internal/vm"
)

// Ext is the file extension of compiled images.
const Ext = ".loxc"

// Current schema version - increment when the Image layout changes
const SchemaVersion uint16 = 1

var (
	// ErrSchema reports an image written by an incompatible version.
	ErrSchema = errors.New("image: unsupported schema version")
	// ErrCorrupt reports a structurally invalid image.
	ErrCorrupt = errors.New("image: corrupt image")
)

// ConstantKind tags a constant pool entry.
type ConstantKind uint8

const (
	ConstNil ConstantKind = iota
	ConstBool
	ConstNumber
	ConstString
	ConstFunction
)

// ConstantImage is one serialized constant.
type ConstantImage struct {
	Kind     ConstantKind   `msgpack:"k"`
	Bool     bool           `msgpack:"b,omitempty"`
	Number   float64        `msgpack:"n,omitempty"`
	String   string         `msgpack:"s,omitempty"`
	Function *FunctionImage `msgpack:"f,omitempty"`
}

// FunctionImage is a serialized function and its chunk. An empty Name marks
// the top-level script.
type FunctionImage struct {
	Name         string          `msgpack:"name"`
	Arity        int             `msgpack:"arity"`
	UpvalueCount int             `msgpack:"upvalues"`
	Code         []byte          `msgpack:"code"`
	Lines        []int           `msgpack:"lines"`
	Constants    []ConstantImage `msgpack:"consts"`
}

// Image is the root document of a .loxc file.
type Image struct {
	Schema uint16         `msgpack:"schema"`
	Source string         `msgpack:"source,omitempty"`
	Script *FunctionImage `msgpack:"script"`
}

// IsImagePath reports whether path names a compiled image.
func IsImagePath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Ext)
}

// Build snapshots fn and every function reachable from its constants.
// Build does not allocate on h.
func Build(h *vm.Heap, fn *vm.Function, source string) (*Image, error) {
	script, err := buildFunction(h, fn)
	if err != nil {
		return nil, err
	}
	return &Image{Schema: SchemaVersion, Source: source, Script: script}, nil
}

func buildFunction(h *vm.Heap, fn *vm.Function) (*FunctionImage, error) {
	out := &FunctionImage{
		Arity:        fn.Arity,
		UpvalueCount: fn.UpvalueCount,
		Code:         append([]byte(nil), fn.Chunk.Code...),
		Lines:        append([]int(nil), fn.Chunk.Lines...),
		Constants:    make([]ConstantImage, len(fn.Chunk.Constants)),
	}
	if fn.Name != nil {
		out.Name = fn.Name.Chars
	}
	for i, v := range fn.Chunk.Constants {
		switch {
		case v.IsNil():
			out.Constants[i] = ConstantImage{Kind: ConstNil}
		case v.IsBool():
			out.Constants[i] = ConstantImage{Kind: ConstBool, Bool: v.AsBool()}
		case v.IsNumber():
			out.Constants[i] = ConstantImage{Kind: ConstNumber, Number: v.AsNumber()}
		default:
			if s, ok := vm.As[*vm.String](h, v); ok {
				out.Constants[i] = ConstantImage{Kind: ConstString, String: s.Chars}
				continue
			}
			nested, ok := vm.As[*vm.Function](h, v)
			if !ok {
				kind, _ := h.KindOf(v)
				return nil, fmt.Errorf("image: constant %d of %s: unsupported %s", i, out.Name, kind)
			}
			img, err := buildFunction(h, nested)
			if err != nil {
				return nil, err
			}
			out.Constants[i] = ConstantImage{Kind: ConstFunction, Function: img}
		}
	}
	return out, nil
}

// Encode writes img to w.
func Encode(w io.Writer, img *Image) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(img); err != nil {
		return fmt.Errorf("image: encode: %w", err)
	}
	return nil
}

// Decode reads an image from r and checks its schema.
func Decode(r io.Reader) (*Image, error) {
	var img Image
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&img); err != nil {
		return nil, fmt.Errorf("image: decode: %w", err)
	}
	if img.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, img.Schema, SchemaVersion)
	}
	if img.Script == nil {
		return nil, fmt.Errorf("%w: missing script", ErrCorrupt)
	}
	return &img, nil
}

// WriteFile writes img to path atomically.
func WriteFile(path string, img *Image) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = Encode(f, img); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), path)
}

// ReadFile decodes the image stored at path.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
