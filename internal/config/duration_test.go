package config

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"5", 5 * time.Second, false},
		{"2.5", 2500 * time.Millisecond, false},
		{"90s", 90 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"soon", 0, true},
		{"-1", 0, true},
		{"-5s", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got.D() != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got.D(), tt.want)
		}
	}
}

func TestDuration_Set(t *testing.T) {
	var d Duration
	if err := d.Set("10"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d.D() != 10*time.Second || d.String() != "10s" {
		t.Errorf("unexpected value %v", d)
	}
	if d.Type() != "duration" {
		t.Errorf("Type() = %q", d.Type())
	}
}

func TestDuration_SetRejectsNegative(t *testing.T) {
	d := Duration(10 * time.Second)
	if err := d.Set("-1"); err == nil {
		t.Fatal("expected an error for a negative timeout")
	}
	if d.D() != 10*time.Second {
		t.Errorf("rejected value must not change the flag, got %v", d)
	}
}
