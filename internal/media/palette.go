package media

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/EdlinOrg/prominentcolor"

	"github.com/landgraph/landcrawler/internal/land"
)

// websafeLevels are the six channel values of the fixed 216-color grid.
var websafeLevels = []uint8{0, 51, 102, 153, 204, 255}

// extractPalette clusters the image's pixels into k dominant colors and
// aggregates their shares onto the web-safe grid.
func extractPalette(img image.Image, k int) ([]land.ColorShare, map[string]float64, error) {
	items, err := prominentcolor.KmeansWithAll(
		k,
		img,
		prominentcolor.ArgumentNoCropping,
		prominentcolor.DefaultSize,
		prominentcolor.GetDefaultMasks(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kmeans clustering: %w", err)
	}

	total := 0
	for _, item := range items {
		total += item.Cnt
	}
	if total == 0 {
		return nil, nil, fmt.Errorf("kmeans produced empty clusters")
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Cnt > items[j].Cnt })

	dominant := make([]land.ColorShare, 0, len(items))
	websafe := make(map[string]float64)
	for _, item := range items {
		share := land.ColorShare{
			R:          uint8(item.Color.R),
			G:          uint8(item.Color.G),
			B:          uint8(item.Color.B),
			Percentage: math.Round(float64(item.Cnt)/float64(total)*100*100) / 100,
		}
		dominant = append(dominant, share)

		key := fmt.Sprintf("#%02x%02x%02x",
			nearestWebsafe(share.R), nearestWebsafe(share.G), nearestWebsafe(share.B))
		websafe[key] += share.Percentage
	}

	return dominant, websafe, nil
}

// nearestWebsafe snaps one channel to the closest grid level. The grid is
// uniform per channel, so snapping channels independently equals the
// nearest color over the full 216-entry palette.
func nearestWebsafe(v uint8) uint8 {
	best := websafeLevels[0]
	bestDist := math.MaxFloat64
	for _, level := range websafeLevels {
		dist := math.Abs(float64(v) - float64(level))
		if dist < bestDist {
			bestDist = dist
			best = level
		}
	}
	return best
}
