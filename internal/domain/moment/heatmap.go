package moment

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/viralclip/internal/domain/model"
)

type heatmapMarker struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Value     float64 `json:"value"`
}

type infoJSON struct {
	Heatmap []heatmapMarker `json:"heatmap"`
}

// ParseHeatmap converts the "heatmap" markers of a downloader info document
// into an engagement signal. Markers carry no like data, so LikeWeight is zero.
// A document without markers yields an empty signal.
func ParseHeatmap(data []byte) (model.EngagementSignal, error) {
	var info infoJSON
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse heatmap: %w", err)
	}

	signal := make(model.EngagementSignal, 0, len(info.Heatmap))
	for _, m := range info.Heatmap {
		if !validStart(m.StartTime) || math.IsNaN(m.Value) {
			continue
		}
		signal = append(signal, model.SignalPoint{
			OffsetSeconds: int(m.StartTime),
			Intensity:     m.Value,
		})
	}
	return signal, nil
}

func validStart(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= math.MaxInt32
}
