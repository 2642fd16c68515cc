// Package cover holds the cover quality score, the automatic per-volume
// selection heuristic and the border-defect crop geometry.
package cover

import (
	"math"
	"strings"

	"coverarr/internal/domain"
)

var formatScores = map[string]int{
	"png":  9,
	"jpeg": 6,
	"jpg":  6,
	"webp": 3,
}

var chromaScores = map[string]int{
	"4:4:4": 8,
	"4:2:2": 6,
	"4:2:0": 4,
}

// Score computes the quality score of a cover from its metadata. The score is
// deterministic and must be recomputed after every mutation of the metadata
// or crop state.
func Score(meta *domain.CoverMeta) int {
	if meta == nil {
		return 0
	}

	resolutionScore := int(math.Sqrt(float64(meta.Width)*float64(meta.Height)) / 20)

	format := strings.ToLower(meta.Format)
	formatScore := formatScores[format]

	chromaScore := 8
	if format == "jpeg" || format == "jpg" {
		var ok bool
		if chromaScore, ok = chromaScores[meta.ChromaSubsampling]; !ok {
			chromaScore = 4
		}
	}

	total := resolutionScore + formatScore + chromaScore

	return int(math.Round(float64(total) / 2))
}

// Rescore recomputes and stores the score of a book's cover metadata.
func Rescore(book *domain.Book) {
	if book.Meta == nil {
		return
	}
	book.Meta.Score = Score(book.Meta)
}
