// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package form

import (
	"net/url"
	"reflect"
	"testing"
	"time"
)

type testMessage struct {
	Repo    string        `form:"repo,required"`
	Count   int           `form:"count"`
	Labels  []string      `form:"labels"`
	Nums    []int         `form:""`
	Timeout time.Duration `form:"timeout"`
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    url.Values
		wantErr bool
	}{
		{
			name: "all fields",
			input: testMessage{
				Repo:    "https://github.com/example/app",
				Count:   7,
				Labels:  []string{"a", "b"},
				Nums:    []int{1, 2, 3},
				Timeout: time.Minute,
			},
			want: url.Values{
				"repo":    []string{"https://github.com/example/app"},
				"count":   []string{"7"},
				"labels":  []string{"a", "b"},
				"nums":    []string{"[1,2,3]"},
				"timeout": []string{"60000000000"},
			},
		},
		{
			name:  "zero fields omitted",
			input: testMessage{Repo: "https://github.com/example/app"},
			want:  url.Values{"repo": []string{"https://github.com/example/app"}},
		},
		{
			name:  "pointer to struct",
			input: &testMessage{Repo: "r"},
			want:  url.Values{"repo": []string{"r"}},
		},
		{
			name:    "not a struct",
			input:   "not a struct",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Marshal() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Marshal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   url.Values
		want    testMessage
		wantErr bool
	}{
		{
			name: "round trip fields",
			input: url.Values{
				"repo":    {"https://github.com/example/app"},
				"count":   {"7"},
				"labels":  {"a", "b"},
				"timeout": {"60000000000"},
			},
			want: testMessage{
				Repo:    "https://github.com/example/app",
				Count:   7,
				Labels:  []string{"a", "b"},
				Timeout: time.Minute,
			},
		},
		{
			name:    "missing required field",
			input:   url.Values{"count": {"7"}},
			wantErr: true,
		},
		{
			name:    "malformed json value",
			input:   url.Values{"repo": {"r"}, "count": {"seven"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testMessage
			err := Unmarshal(tt.input, &got)
			if (err != nil) != tt.wantErr {
				t.Errorf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unmarshal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	type tagged struct {
		Named    string `form:"custom_name,required"`
		Untagged string
		Required string `form:",required"`
	}
	ttype := reflect.TypeOf(tagged{})
	for _, tt := range []struct {
		field string
		want  tagOptions
	}{
		{"Named", tagOptions{name: "custom_name", required: true}},
		{"Untagged", tagOptions{name: "untagged"}},
		{"Required", tagOptions{name: "required", required: true}},
	} {
		t.Run(tt.field, func(t *testing.T) {
			f, ok := ttype.FieldByName(tt.field)
			if !ok {
				t.Fatalf("no field %q", tt.field)
			}
			if got := options(f); got != tt.want {
				t.Errorf("options() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
