package modpass

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/bindpost/errors"
	"github.com/wippyai/bindpost/toolchain"
	"github.com/wippyai/bindpost/wasm"
	"github.com/wippyai/bindpost/wat"
	"github.com/wippyai/bindpost/wat/sexpr"
)

// bindgenFixture mimics the shape of a bindgen module: an accessor stub,
// its export, and a getter guarded by the -1 bounds check.
const bindgenFixture = `(module
  (type $t0 (func (param i32 i32)))
  (type $t1 (func (param i32) (result i32)))
  (memory (export "memory") 17)
  (func $matrix4_elements (export "matrix4_elements") (type $t0) (param $0 i32) (param $1 i32)
    unreachable)
  (func $vector3_len (export "vector3_len") (type $t1) (param $0 i32) (result i32)
    (local $1 i32)
    block $label$0
      local.get $0
      i32.load offset=4
      local.tee $1
      i32.const -1
      i32.eq
      br_if $label$0
      local.get $1
      return
    end
    i32.const 0))`

func compile(t *testing.T, text string) []byte {
	t.Helper()
	bin, err := wat.Compile(text)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return bin
}

func exportNames(t *testing.T, bin []byte) []string {
	t.Helper()
	m, err := wasm.ParseModule(bin)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	names := make([]string, len(m.Exports))
	for i, e := range m.Exports {
		names[i] = e.Name
	}
	return names
}

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func TestTransform(t *testing.T) {
	ctx := context.Background()
	bin := compile(t, bindgenFixture)

	res, err := Transform(ctx, toolchain.NewNative(), bin)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	want := Stats{DeadBranches: 1, StubsRemoved: 1, ExportsRemoved: 1, InputSize: len(bin), OutputSize: len(res.Binary)}
	if res.Stats != want {
		t.Errorf("stats = %+v, want %+v", res.Stats, want)
	}
	if res.Stats.OutputSize >= res.Stats.InputSize {
		t.Errorf("output %d not smaller than input %d", res.Stats.OutputSize, res.Stats.InputSize)
	}

	for _, name := range exportNames(t, res.Binary) {
		if strings.HasSuffix(name, StubSuffix) {
			t.Errorf("stub export %q survived", name)
		}
	}
	for _, s := range []string{"br_if", "i32.eq", "matrix4_elements"} {
		if strings.Contains(res.Text, s) {
			t.Errorf("text still contains %q:\n%s", s, res.Text)
		}
	}
	if !strings.Contains(res.Text, "local.set $1") {
		t.Errorf("tee not rewritten to set:\n%s", res.Text)
	}
}

func TestTransformIdempotent(t *testing.T) {
	ctx := context.Background()
	tc := toolchain.NewNative()

	first, err := Transform(ctx, tc, compile(t, bindgenFixture))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Transform(ctx, tc, first.Binary)
	if err != nil {
		t.Fatalf("second Transform: %v", err)
	}
	if second.Stats.Changed() {
		t.Errorf("second run made edits: %+v", second.Stats)
	}
	if string(second.Binary) != string(first.Binary) {
		t.Errorf("second run changed the binary")
	}
}

func TestTransformLogsMissingIdiom(t *testing.T) {
	logs := observe(t)

	bin := compile(t, `(module
		(memory (export "memory") 1)
		(func (export "answer") (result i32) i32.const 42))`)
	res, err := Transform(context.Background(), toolchain.NewNative(), bin)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if res.Stats.Changed() {
		t.Errorf("unexpected edits: %+v", res.Stats)
	}

	entries := logs.FilterMessage("dead-branch cleanup skipped").All()
	if len(entries) != 1 {
		t.Fatalf("expected one skip message, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("level = %v, want info", entries[0].Level)
	}
}

func TestTransformKeepsReferencedStub(t *testing.T) {
	logs := observe(t)

	bin := compile(t, `(module
		(memory (export "memory") 1)
		(func $vector2_elements (export "vector2_elements") (param i32 i32)
			unreachable)
		(func (export "caller") (param i32)
			local.get 0
			local.get 0
			call $vector2_elements))`)
	res, err := Transform(context.Background(), toolchain.NewNative(), bin)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if res.Stats.StubsKept != 1 || res.Stats.StubsRemoved != 0 || res.Stats.ExportsRemoved != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	m, err := wasm.ParseModule(res.Binary)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Code) != 2 {
		t.Errorf("expected both functions kept, got %d", len(m.Code))
	}
	if logs.FilterMessage("keeping referenced accessor stub").Len() != 1 {
		t.Errorf("missing warning, logs: %v", logs.All())
	}
}

func TestTransformRemovesGuardedGetter(t *testing.T) {
	bin := compile(t, `(module
  (type $t0 (func (param i32 i32)))
  (memory (export "memory") 17)
  (func $throw
    unreachable)
  (func $matrix4_elements (export "matrix4_elements") (type $t0) (param $0 i32) (param $1 i32)
    (local $2 i32)
    block $label$0
      local.get $1
      i32.load offset=4
      local.tee $2
      i32.const -1
      i32.eq
      br_if $label$0
      local.get $0
      local.get $2
      i32.store
      return
    end
    call $throw
    unreachable))`)

	res, err := Transform(context.Background(), toolchain.NewNative(), bin)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := Stats{DeadBranches: 1, StubsRemoved: 1, ExportsRemoved: 1, InputSize: len(bin), OutputSize: len(res.Binary)}
	if res.Stats != want {
		t.Errorf("stats = %+v, want %+v", res.Stats, want)
	}
	if strings.Contains(res.Text, "matrix4_elements") {
		t.Errorf("getter body survived:\n%s", res.Text)
	}
	m, err := wasm.ParseModule(res.Binary)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Code) != 1 {
		t.Errorf("expected only $throw to remain, got %d functions", len(m.Code))
	}
}

// failingText parses binaries natively but rejects every text form.
type failingText struct {
	*toolchain.Native
}

func (failingText) ParseText(context.Context, string) (toolchain.IR, error) {
	return nil, stderrors.New("unexpected token")
}

func TestTransformReparseFailure(t *testing.T) {
	_, err := Transform(context.Background(), failingText{toolchain.NewNative()}, compile(t, bindgenFixture))
	if !errors.IsKind(err, errors.KindRoundTripFailure) {
		t.Fatalf("expected round-trip failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "unexpected token") {
		t.Errorf("cause not carried: %v", err)
	}
}

func TestTransformRequiresMemoryExport(t *testing.T) {
	bin := compile(t, `(module (memory 1) (func))`)
	_, err := Transform(context.Background(), toolchain.NewNative(), bin)
	if !errors.IsKind(err, errors.KindRoundTripFailure) {
		t.Fatalf("expected round-trip failure, got %v", err)
	}
}

func TestRemoveDeadBranchesFolded(t *testing.T) {
	src := `(module
 (type $0 (func (param i32) (result i32)))
 (memory $0 17)
 (export "memory" (memory $0))
 (func $vector3_len (type $0) (param $0 i32) (result i32)
  (local $1 i32)
  (block $label$1
   (br_if $label$1
    (i32.eq
     (tee_local $1
      (i32.load offset=4
       (get_local $0)
      )
     )
     (i32.const -1)
    )
   )
   (return
    (get_local $1)
   )
  )
  (i32.const 0)
 )
)`
	root, err := sexpr.ParseOne(src)
	if err != nil {
		t.Fatal(err)
	}
	if n := removeDeadBranches(root); n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}
	out := sexpr.Format(root)
	if strings.Contains(out, "br_if") || !strings.Contains(out, "(set_local $1") {
		t.Errorf("unexpected rewrite:\n%s", out)
	}

	bin := compile(t, out)
	if err := Verify(context.Background(), bin); err != nil {
		t.Errorf("Verify: %v", err)
	}

	if n := removeDeadBranches(root); n != 0 {
		t.Errorf("second pass removed %d", n)
	}
}

func TestRemoveDeadBranchesNearMisses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"other_sentinel", `(br_if $l (i32.eq (local.tee $1 (i32.load (local.get $0))) (i32.const 0)))`},
		{"ne_comparison", `(br_if $l (i32.ne (local.tee $1 (i32.load (local.get $0))) (i32.const -1)))`},
		{"set_not_tee", `(br_if $l (i32.eq (local.set $1 (i32.load (local.get $0))) (i32.const -1)))`},
		{"load_of_global", `(br_if $l (i32.eq (local.tee $1 (i32.load (global.get $g))) (i32.const -1)))`},
		{"flat_missing_eq", "local.get $0\ni32.load\nlocal.tee $1\ni32.const -1\nbr_if $l"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := sexpr.ParseOne("(module (func " + tt.body + "))")
			if err != nil {
				t.Fatal(err)
			}
			before := sexpr.Format(root)
			if n := removeDeadBranches(root); n != 0 {
				t.Errorf("matched %d times", n)
			}
			if after := sexpr.Format(root); after != before {
				t.Errorf("tree changed:\n%s", after)
			}
		})
	}
}

func TestIsStub(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		want bool
	}{
		{"flat", `(func $matrix4_elements (type $t0) (param $0 i32) (param $1 i32) unreachable)`, true},
		{"folded", `(func $vector3_elements (type $1) (param $0 i32) (param $1 i32) (unreachable))`, true},
		{"unnamed_params", `(func $quat_elements (param i32 i32) unreachable)`, true},
		{"wrong_suffix", `(func $matrix4_invert (param i32 i32) unreachable)`, false},
		{"one_param", `(func $matrix4_elements (param i32) unreachable)`, false},
		{"i64_param", `(func $matrix4_elements (param i32 i64) unreachable)`, false},
		{"real_body", `(func $matrix4_elements (param i32 i32) local.get 0 drop)`, false},
		{"trailing_code", `(func $matrix4_elements (param i32 i32) unreachable drop)`, false},
		{"guarded_getter", `(func $matrix4_elements (param $0 i32) (param $1 i32) (local $2 i32)
			block $label$0
			local.get $1
			i32.load offset=4
			local.set $2
			local.get $0
			local.get $2
			i32.store
			return
			end
			call $throw
			unreachable)`, true},
		{"guarded_getter_folded", `(func $vector3_elements (param $0 i32) (param $1 i32)
			(block $label$0 (return))
			(call $throw)
			(unreachable))`, true},
		{"unreachable_in_block", `(func $matrix4_elements (param i32 i32) block unreachable end)`, false},
		{"empty_body", `(func $matrix4_elements (param i32 i32))`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := sexpr.ParseOne(tt.fn)
			if err != nil {
				t.Fatal(err)
			}
			if got := isStub(fn); got != tt.want {
				t.Errorf("isStub = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		wat     string
		wantErr bool
	}{
		{"ok", `(module (memory (export "memory") 1))`, false},
		{"no_memory", `(module (memory 1))`, true},
		{"memory_renamed", `(module (memory (export "mem") 1))`, true},
		{"stub_exported", `(module
			(memory (export "memory") 1)
			(func (export "matrix2_elements") (param i32 i32) unreachable))`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(ctx, compile(t, tt.wat))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsKind(err, errors.KindRoundTripFailure) {
				t.Errorf("kind = %v, want round-trip failure", err)
			}
		})
	}

	if err := Verify(ctx, []byte("garbage")); !errors.IsKind(err, errors.KindRoundTripFailure) {
		t.Errorf("garbage: %v", err)
	}
}
