package httpcache

import (
	"context"
	"testing"
	"time"
)

func TestURLToKey(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "profile url",
			url:  "https://www.tiktok.com/@maker",
			want: "320e34b651d50f5d9f7ebcde1a3b0bf56176ec5a0763852419b110dc0c57c31d",
		},
		{
			name: "auth marker changes key",
			url:  "https://www.tiktok.com/@maker|auth",
			want: "6b022852f3dbf7380e7277cce2f335661f3c566995b2d0f21f587672edc73ed0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URLToKey(tt.url); got != tt.want {
				t.Errorf("URLToKey(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestNewNull(t *testing.T) {
	c := NewNull()
	if got := c.TTL(); got != 0 {
		t.Errorf("NewNull().TTL() = %v, want 0", got)
	}

	data, err := c.GetSet(context.Background(), "k", func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	if err != nil {
		t.Fatalf("GetSet() error = %v", err)
	}
	if string(data) != "v" {
		t.Errorf("GetSet() = %q, want %q", data, "v")
	}
}

func TestNewWithPath(t *testing.T) {
	c, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath() error = %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	if got := c.TTL(); got != time.Hour {
		t.Errorf("TTL() = %v, want %v", got, time.Hour)
	}
}
