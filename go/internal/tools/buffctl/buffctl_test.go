package main

import "testing"

func TestBuildMessage(t *testing.T) {
	tests := []struct {
		args    []string
		want    map[string]any
		wantErr bool
	}{
		{args: []string{"add", "speed", "10"}, want: map[string]any{"action": "add", "buff": "speed", "duration": 10.0}},
		{args: []string{"extend", "focus", "2.5"}, want: map[string]any{"action": "extend", "buff": "focus", "duration": 2.5}},
		{args: []string{"remove", "speed"}, want: map[string]any{"action": "remove", "buff": "speed"}},
		{args: []string{"add", "speed"}, wantErr: true},
		{args: []string{"add", "speed", "ten"}, wantErr: true},
		{args: []string{"remove"}, wantErr: true},
		{args: []string{"dance", "speed"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := buildMessage(tt.args)
		if tt.wantErr {
			if err == nil {
				t.Errorf("buildMessage(%v) accepted", tt.args)
			}
			continue
		}
		if err != nil {
			t.Errorf("buildMessage(%v) error = %v", tt.args, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("buildMessage(%v) = %v, want %v", tt.args, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("buildMessage(%v)[%s] = %v, want %v", tt.args, k, got[k], v)
			}
		}
	}
}

func TestCommandSubject(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"add", "speed", "10"}, want: "buff.commands.add"},
		{args: []string{"add", "iron skin", "10"}, want: "buff.commands.add"},
		{args: []string{"extend", "speed.>", "5"}, want: "buff.commands.extend"},
		{args: []string{"remove", "*"}, want: "buff.commands.remove"},
	}
	for _, tt := range tests {
		msg, err := buildMessage(tt.args)
		if err != nil {
			t.Fatalf("buildMessage(%v) error = %v", tt.args, err)
		}
		if got := commandSubject("buff.commands", msg); got != tt.want {
			t.Errorf("commandSubject(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
