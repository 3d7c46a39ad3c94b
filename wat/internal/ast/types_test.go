package ast

import "testing"

func TestFuncTypeEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b FuncType
		want bool
	}{
		{"empty", FuncType{}, FuncType{}, true},
		{"same", FuncType{Params: []ValType{ValTypeI32}, Results: []ValType{ValTypeF64}}, FuncType{Params: []ValType{ValTypeI32}, Results: []ValType{ValTypeF64}}, true},
		{"param_count", FuncType{Params: []ValType{ValTypeI32}}, FuncType{Params: []ValType{ValTypeI32, ValTypeI32}}, false},
		{"param_type", FuncType{Params: []ValType{ValTypeI32}}, FuncType{Params: []ValType{ValTypeI64}}, false},
		{"result_moved", FuncType{Params: []ValType{ValTypeI32}}, FuncType{Results: []ValType{ValTypeI32}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}
