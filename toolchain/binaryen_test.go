package toolchain

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func requireBinaryen(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"wasm-opt", "wasm-dis", "wasm-as"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not installed", tool)
		}
	}
}

func TestBinaryenRoundTrip(t *testing.T) {
	requireBinaryen(t)
	ctx := context.Background()
	tc := NewBinaryen("")

	ir, err := tc.Parse(ctx, compile(t, `(module
		(memory (export "memory") 1)
		(func (export "answer") (result i32) i32.const 42))`))
	if err != nil {
		t.Fatal(err)
	}
	if err := ir.Optimize(ctx, Options{}); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	text, err := ir.EmitText(ctx)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if !strings.Contains(text, "answer") {
		t.Errorf("export missing from text:\n%s", text)
	}
	if _, err := tc.ParseText(ctx, text); err != nil {
		t.Fatalf("ParseText: %v", err)
	}
}

func TestBinaryenMissingTool(t *testing.T) {
	ctx := context.Background()
	tc := NewBinaryen(t.TempDir())

	ir, err := tc.Parse(ctx, compile(t, "(module)"))
	if err != nil {
		t.Fatal(err)
	}
	if err := ir.Optimize(ctx, Options{}); err == nil {
		t.Fatal("expected error for empty bin dir")
	}
	if _, err := tc.ParseText(ctx, "(module)"); err == nil {
		t.Fatal("expected error for empty bin dir")
	}
}
