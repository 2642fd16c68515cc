package imageproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBuildURL(t *testing.T) {
	c := New("https://proxy.example.org")

	tests := []struct {
		name string
		opts TransformOptions
		want string
	}{
		{
			"plain",
			TransformOptions{},
			"https://proxy.example.org?url=https%3A%2F%2Fcdn.example.org%2Fcover.jpg",
		},
		{
			"thumbnail",
			TransformOptions{Width: 320},
			"https://proxy.example.org?url=https%3A%2F%2Fcdn.example.org%2Fcover.jpg&w=320",
		},
		{
			"crop with format and quality",
			TransformOptions{Output: "png", Quality: 90, CropWidth: 780, CropX: 120},
			"https://proxy.example.org?cw=780&cx=120&output=png&q=90&url=https%3A%2F%2Fcdn.example.org%2Fcover.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.BuildURL("https://cdn.example.org/cover.jpg", tt.opts)
			if got != tt.want {
				t.Errorf("BuildURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("output") != "json" {
			t.Errorf("metadata request missing output=json: %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("url") != "https://cdn.example.org/cover.jpg" {
			t.Errorf("unexpected url param %q", r.URL.Query().Get("url"))
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"format":            "jpeg",
			"width":             900,
			"height":            1200,
			"chromaSubsampling": "4:2:0",
		})
	}))
	defer srv.Close()

	meta, err := New(srv.URL).Metadata(context.Background(), "https://cdn.example.org/cover.jpg")
	if err != nil {
		t.Fatal(err)
	}

	if meta.Format != "jpeg" || meta.Width != 900 || meta.Height != 1200 {
		t.Errorf("meta = %+v, want jpeg 900x1200", meta)
	}
	if meta.ChromaSubsampling != "4:2:0" {
		t.Errorf("chroma = %q, want 4:2:0", meta.ChromaSubsampling)
	}
}
