package image_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"loxmin/internal/compiler"
	"loxmin/internal/image"
	"loxmin/internal/vm"
)

const program = `
fun makeCounter() {
  var i = 0;
  fun count() {
    i = i + 1;
    print i;
  }
  return count;
}
class Greeter {
  init(name) { this.name = name; }
  greet() { print "hi " + this.name; }
}
var c = makeCounter();
c();
c();
Greeter("lox").greet();
print nil;
print true;
print 2.5;
class Base { hello() { return "base"; } }
class Derived < Base {
  hello() { return "derived+" + super.hello(); }
  plain() { var m = super.hello; return m(); }
}
print Derived().hello();
print Derived().plain();
{
  fun fib(n) {
    if (n < 2) return n;
    return fib(n - 1) + fib(n - 2);
  }
  var total = 0;
  for (var i = 0; i < 5; i = i + 1) {
    if (i == 2 or i == 3 and true) total = total + fib(i);
  }
  print total;
}
`

const want = "1\n2\nhi lox\nnil\ntrue\n2.5\nderived+base\nbase\n3\n"

func buildImage(t *testing.T) *image.Image {
	t.Helper()
	h := vm.NewHeap(vm.HeapOptions{})
	defer h.Free()
	fn, err := compiler.Compile(h, []byte(program))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	img, err := image.Build(h, fn, "counter.lox")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return img
}

func runImage(t *testing.T, img *image.Image, stress bool) string {
	t.Helper()
	var out bytes.Buffer
	machine := vm.New(vm.Options{StressGC: stress, Out: &out, Err: &out})
	defer machine.Free()
	if res := machine.Interpret(img.CompileFunc()); res != vm.InterpretOK {
		t.Fatalf("interpret = %v, output %q", res, out.String())
	}
	return out.String()
}

func TestRoundTrip(t *testing.T) {
	img := buildImage(t)

	var buf bytes.Buffer
	if err := image.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := image.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Source != "counter.lox" {
		t.Fatalf("source = %q", decoded.Source)
	}

	for _, stress := range []bool{false, true} {
		if got := runImage(t, decoded, stress); got != want {
			t.Fatalf("stress=%v output = %q, want %q", stress, got, want)
		}
	}
}

func TestWriteReadFile(t *testing.T) {
	img := buildImage(t)
	path := filepath.Join(t.TempDir(), "out", "prog"+image.Ext)
	if err := image.WriteFile(path, img); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !image.IsImagePath(path) {
		t.Fatalf("IsImagePath(%q) = false", path)
	}
	loaded, err := image.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := runImage(t, loaded, false); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestDecodeRejectsSchema(t *testing.T) {
	data, err := msgpack.Marshal(&image.Image{Schema: image.SchemaVersion + 1, Script: &image.FunctionImage{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = image.Decode(bytes.NewReader(data))
	if !errors.Is(err, image.ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
}

// scriptImage builds a function image with one line entry per code byte.
func scriptImage(code []byte, consts ...image.ConstantImage) *image.FunctionImage {
	lines := make([]int, len(code))
	for i := range lines {
		lines[i] = 1
	}
	return &image.FunctionImage{Code: code, Lines: lines, Constants: consts}
}

func ops(parts ...any) []byte {
	var code []byte
	for _, p := range parts {
		switch p := p.(type) {
		case vm.Opcode:
			code = append(code, byte(p))
		case int:
			code = append(code, byte(p))
		}
	}
	return code
}

func TestLoadRejectsCorrupt(t *testing.T) {
	number := image.ConstantImage{Kind: image.ConstNumber, Number: 1}
	name := image.ConstantImage{Kind: image.ConstString, String: "x"}
	ret := ops(vm.OpNil, vm.OpReturn)
	twoUpvalues := scriptImage(ret)
	twoUpvalues.UpvalueCount = 2

	cases := []struct {
		name string
		fn   *image.FunctionImage
	}{
		{"line table", &image.FunctionImage{Code: []byte{0, 1}, Lines: []int{1}}},
		{"arity", &image.FunctionImage{Arity: 300}},
		{"constant kind", scriptImage(ret, image.ConstantImage{Kind: 99})},
		{"nested nil", scriptImage(ret, image.ConstantImage{Kind: image.ConstFunction})},
		{"empty code", scriptImage(nil)},
		{"unknown opcode", scriptImage(ops(0xfe))},
		{"constant out of range", scriptImage(ops(vm.OpConstant, 9, vm.OpReturn))},
		{"global named by a number", scriptImage(ops(vm.OpGetGlobal, 0, vm.OpReturn), number)},
		{"invoke named by a number", scriptImage(ops(vm.OpNil, vm.OpInvoke, 0, 0, vm.OpReturn), number)},
		{"truncated operand", scriptImage(ops(vm.OpNil, vm.OpReturn, vm.OpConstant))},
		{"no return", scriptImage(ops(vm.OpNil))},
		{"jump past the end", scriptImage(ops(vm.OpJump, 0, 10, vm.OpNil, vm.OpReturn))},
		{"jump into an operand", scriptImage(ops(vm.OpJump, 0, 1, vm.OpConstant, 0, vm.OpReturn), number)},
		{"loop before the start", scriptImage(ops(vm.OpNil, vm.OpLoop, 0, 9, vm.OpReturn))},
		{"closure over a number", scriptImage(ops(vm.OpClosure, 0, vm.OpReturn), number)},
		{"closure upvalues past the end", scriptImage(ops(vm.OpClosure, 0, vm.OpReturn),
			image.ConstantImage{Kind: image.ConstFunction, Function: twoUpvalues})},
		{"upvalue out of range", scriptImage(ops(vm.OpGetUpvalue, 0, vm.OpReturn))},
		{"stack underflow", scriptImage(ops(vm.OpPop, vm.OpPop, vm.OpNil, vm.OpReturn))},
		{"local out of range", scriptImage(ops(vm.OpGetLocal, 3, vm.OpReturn))},
		{"set property on one value", scriptImage(ops(vm.OpSetProperty, 0, vm.OpReturn), name)},
		{"depth differs where paths join", scriptImage(ops(vm.OpTrue, vm.OpJumpIfFalse, 0, 1, vm.OpNil, vm.OpReturn))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img := &image.Image{Schema: image.SchemaVersion, Script: tc.fn}
			var out bytes.Buffer
			machine := vm.New(vm.Options{Out: &out, Err: &out})
			defer machine.Free()
			if res := machine.Interpret(img.CompileFunc()); res != vm.InterpretCompileError {
				t.Fatalf("interpret = %v, want compile error", res)
			}
			if err := machine.LastCompileError(); !errors.Is(err, image.ErrCorrupt) {
				t.Fatalf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestLoadAcceptsMinimalScript(t *testing.T) {
	h := vm.NewHeap(vm.HeapOptions{})
	defer h.Free()
	img := &image.Image{Schema: image.SchemaVersion, Script: scriptImage(ops(vm.OpNil, vm.OpReturn))}
	if _, err := img.Load(h); err != nil {
		t.Fatalf("load: %v", err)
	}
}
