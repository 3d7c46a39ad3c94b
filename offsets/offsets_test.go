package offsets

import "testing"

func TestDefault(t *testing.T) {
	want := map[string]int{
		"Matrix2": 4, "Matrix2d": 6, "Matrix3": 9, "Matrix4": 16,
		"Vector2": 2, "Vector3": 3, "Vector4": 4,
		"Quaternion": 4, "Quaternion2": 8,
	}
	if len(Default) != len(want) {
		t.Fatalf("Default has %d entries, want %d", len(Default), len(want))
	}
	for name, lanes := range want {
		got, ok := Default.Lanes(name)
		if !ok || got != lanes {
			t.Errorf("Lanes(%q) = %d, %v; want %d", name, got, ok, lanes)
		}
	}
	if err := Default.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestStartIndex(t *testing.T) {
	tests := []struct {
		ptr  uint32
		want uint32
	}{
		{0, 1},
		{40, 11},
		{1048576, 262145},
	}
	for _, tt := range tests {
		if got := StartIndex(tt.ptr); got != tt.want {
			t.Errorf("StartIndex(%d) = %d, want %d", tt.ptr, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   Table
		wantErr bool
	}{
		{"empty", Table{}, false},
		{"zero_lanes", Table{"Vector2": 0}, true},
		{"empty_name", Table{"": 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.table.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNames(t *testing.T) {
	names := Table{"b": 1, "a": 2, "c": 3}.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("Names() = %v", names)
	}
}
