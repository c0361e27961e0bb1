package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/corona10/goimagehash"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/landgraph/landcrawler/internal/fetch"
	"github.com/landgraph/landcrawler/internal/land"
)

// Analyzer downloads and inspects image media. Every failure is recorded on
// the media record instead of propagating; a corrupt image never aborts a
// harvest.
type Analyzer struct {
	downloader *fetch.Downloader
	kColors    int
	logger     *zap.Logger
}

// NewAnalyzer constructs an Analyzer clustering into kColors dominant colors.
func NewAnalyzer(downloader *fetch.Downloader, kColors int, logger *zap.Logger) *Analyzer {
	if kColors <= 0 {
		kColors = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{downloader: downloader, kColors: kColors, logger: logger}
}

// Analyze fills the analysis fields of record from the image at rawURL.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, record *land.Media) {
	data, err := a.downloader.Download(ctx, rawURL)
	if err != nil {
		record.AnalysisError = err.Error()
		return
	}

	record.FileSize = int64(len(data))
	sum := sha256.Sum256(data)
	record.ContentHash = hex.EncodeToString(sum[:])

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		record.AnalysisError = fmt.Sprintf("decode image: %v", err)
		return
	}

	bounds := img.Bounds()
	record.Width = bounds.Dx()
	record.Height = bounds.Dy()
	record.Format = format
	record.ColorMode = colorMode(img)
	if record.Height > 0 {
		record.AspectRatio = math.Round(float64(record.Width)/float64(record.Height)*100) / 100
	}

	if hash, err := goimagehash.PerceptionHash(img); err == nil {
		record.PerceptualHash = hash.ToString()
	}

	dominant, websafe, err := extractPalette(img, a.kColors)
	if err != nil {
		record.AnalysisError = fmt.Sprintf("color analysis: %v", err)
	} else {
		record.DominantColors = dominant
		record.WebsafeColors = websafe
	}

	if subset := extractEXIF(data); subset != nil {
		record.EXIF = subset
	}

	record.IsProcessed = record.AnalysisError == ""
}

// colorMode approximates the decoded image's color layout.
func colorMode(img image.Image) string {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return "L"
	case *image.Paletted:
		return "P"
	case *image.YCbCr:
		return "YCbCr"
	case *image.CMYK:
		return "CMYK"
	default:
		if opaque(img) {
			return "RGB"
		}
		return "RGBA"
	}
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}

// extractEXIF pulls the small fixed subset kept per image. Images without
// EXIF (png, gif, most webp) simply yield nil.
func extractEXIF(data []byte) *land.EXIFSubset {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	subset := &land.EXIFSubset{}
	found := false
	if tag, err := x.Get(exif.ImageWidth); err == nil {
		if v, err := tag.Int(0); err == nil {
			subset.ImageWidth = v
			found = true
		}
	}
	if tag, err := x.Get(exif.ImageLength); err == nil {
		if v, err := tag.Int(0); err == nil {
			subset.ImageLength = v
			found = true
		}
	}
	if tag, err := x.Get(exif.Make); err == nil {
		if v, err := tag.StringVal(); err == nil {
			subset.Make = v
			found = true
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if v, err := tag.StringVal(); err == nil {
			subset.Model = v
			found = true
		}
	}
	if tag, err := x.Get(exif.DateTime); err == nil {
		if v, err := tag.StringVal(); err == nil {
			subset.DateTime = v
			found = true
		}
	}
	if !found {
		return nil
	}
	return subset
}
