package ame

import (
	"reflect"
	"testing"
)

func TestParseSelectionIndices(t *testing.T) {
	tests := []struct {
		input   string
		max     int
		want    []int
		exclude bool
		wantErr bool
	}{
		{input: "", max: 3},
		{input: "1", max: 3, want: []int{0}},
		{input: "3, 1", max: 3, want: []int{0, 2}},
		{input: "2-4", max: 5, want: []int{1, 2, 3}},
		{input: "-2", max: 3, want: []int{0, 2}, exclude: true},
		{input: "1,1", max: 2, want: []int{0}},
		{input: "4", max: 3, wantErr: true},
		{input: "0", max: 3, wantErr: true},
		{input: "x", max: 3, wantErr: true},
		{input: "3-1", max: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, exclude, err := ParseSelectionIndices(tt.input, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) || exclude != tt.exclude {
				t.Errorf("got %v, %v; want %v, %v", got, exclude, tt.want, tt.exclude)
			}
		})
	}
}

func TestSelectionAnswer(t *testing.T) {
	tests := []struct {
		input string
		want  []int
	}{
		{input: "", want: nil},
		{input: "N", want: nil},
		{input: "none", want: nil},
		{input: "a", want: []int{0, 1, 2}},
		{input: " all ", want: []int{0, 1, 2}},
		{input: "2", want: []int{1}},
		{input: "-1", want: []int{1, 2}},
	}
	for _, tt := range tests {
		got, err := selectionAnswer(tt.input, 3)
		if err != nil {
			t.Fatalf("selectionAnswer(%q) error = %v", tt.input, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("selectionAnswer(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if _, err := selectionAnswer("7", 3); err == nil {
		t.Error("selectionAnswer(\"7\") succeeded, want an error")
	}
}
