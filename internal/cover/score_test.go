package cover

import (
	"testing"

	"coverarr/internal/domain"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		meta domain.CoverMeta
		want int
	}{
		{
			// resolution floor(sqrt(1e6)/20)=50, png 9, chroma 8 -> round(67/2)
			name: "png megapixel",
			meta: domain.CoverMeta{Format: "png", Width: 1000, Height: 1000},
			want: 34,
		},
		{
			// resolution 50, jpeg 6, chroma 4:2:0 -> round(60/2)
			name: "jpeg with 420 chroma",
			meta: domain.CoverMeta{Format: "jpeg", Width: 1000, Height: 1000, ChromaSubsampling: "4:2:0"},
			want: 30,
		},
		{
			// unknown chroma on jpeg falls back to 4
			name: "jpeg unknown chroma",
			meta: domain.CoverMeta{Format: "jpg", Width: 1000, Height: 1000},
			want: 30,
		},
		{
			// resolution 50, jpeg 6, chroma 4:4:4 -> round(64/2)
			name: "jpeg with 444 chroma",
			meta: domain.CoverMeta{Format: "jpeg", Width: 1000, Height: 1000, ChromaSubsampling: "4:4:4"},
			want: 32,
		},
		{
			// chroma table only applies to jpeg; webp keeps the default 8
			name: "webp ignores chroma",
			meta: domain.CoverMeta{Format: "webp", Width: 1000, Height: 1000, ChromaSubsampling: "4:2:0"},
			want: 31,
		},
		{
			name: "unknown format",
			meta: domain.CoverMeta{Format: "avif", Width: 1000, Height: 1000},
			want: 29,
		},
		{
			name: "nil safety",
			meta: domain.CoverMeta{},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(&tt.meta); got != tt.want {
				t.Errorf("Score(%+v) = %d, want %d", tt.meta, got, tt.want)
			}
		})
	}
}

func TestScoreNilMeta(t *testing.T) {
	if got := Score(nil); got != 0 {
		t.Errorf("Score(nil) = %d, want 0", got)
	}
}
