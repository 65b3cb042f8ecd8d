package render

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"voicecoach/internal/domain"
)

// Placeholder texts shown instead of an empty section.
const (
	PlaceholderSegments     = "분석된 세그먼트가 없습니다."
	PlaceholderPitchGroups  = "피치별 분석 결과가 없습니다."
	PlaceholderConsolidated = "분석된 세그먼트가 없습니다."
	PlaceholderChart        = "차트를 생성할 데이터가 없습니다."
	PlaceholderMerged       = "병합 정보 없음"

	NoResultWavKey    = "분석 결과 없음"
	NoResultScaleType = "분석 결과가 없습니다. 메인 페이지에서 음성을 녹음하고 분석해주세요."
)

const (
	labelVocalCord = "성대 진동"
	labelContact   = "접촉"
	labelLarynx    = "후두 위치"
	labelStrength  = "발성 강도"

	pitchDatasetLabel = "피치 (Hz)"
	pitchAxisID       = "y1"
)

// Detail is one labelled categorical value.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SegmentItem is one row of the fine-grained segment list.
type SegmentItem struct {
	Index        int      `json:"index"`
	Header       string   `json:"header"`
	TimeRange    string   `json:"timeRange"`
	StartTimeSec float64  `json:"startTimeSec"`
	EndTimeSec   float64  `json:"endTimeSec"`
	Details      []Detail `json:"details"`
}

// PitchGroupItem is one clickable pitch group card.
type PitchGroupItem struct {
	Title        string   `json:"title"`
	TimeRange    string   `json:"timeRange"`
	Hue          float64  `json:"hue"`
	Color        string   `json:"color"`
	StartTimeSec float64  `json:"startTimeSec"`
	EndTimeSec   float64  `json:"endTimeSec"`
	Attributes   []string `json:"attributes"`
	Feedback     string   `json:"feedback"`
}

// SegmentGroupItem is one consolidated segment card.
type SegmentGroupItem struct {
	Header       string   `json:"header"`
	StartTimeSec float64  `json:"startTimeSec"`
	EndTimeSec   float64  `json:"endTimeSec"`
	Feedback     string   `json:"feedback"`
	Details      []Detail `json:"details"`
	Meta         string   `json:"meta"`
}

type SegmentSection struct {
	Items       []SegmentItem `json:"items"`
	Placeholder string        `json:"placeholder,omitempty"`
}

type PitchGroupSection struct {
	Items       []PitchGroupItem `json:"items"`
	Placeholder string           `json:"placeholder,omitempty"`
}

type SegmentGroupSection struct {
	Items       []SegmentGroupItem `json:"items"`
	Placeholder string             `json:"placeholder,omitempty"`
}

// Dataset is one chart series. Nil points are gaps.
type Dataset struct {
	Label           string     `json:"label"`
	Data            []*float64 `json:"data"`
	BackgroundColor string     `json:"backgroundColor"`
	BorderColor     string     `json:"borderColor"`
	BorderWidth     int        `json:"borderWidth"`
	BorderDash      []int      `json:"borderDash,omitempty"`
	YAxisID         string     `json:"yAxisID,omitempty"`
}

// Chart is the line chart over the time-sorted segments.
type Chart struct {
	Labels       []string  `json:"labels"`
	Datasets     []Dataset `json:"datasets"`
	YTicks       []string  `json:"yTicks"`
	HasPitchAxis bool      `json:"hasPitchAxis"`
	Placeholder  string    `json:"placeholder,omitempty"`
}

// ValuesAt returns the categorical values plotted for the i-th segment, in dataset order.
func (c Chart) ValuesAt(i int) []float64 {
	out := make([]float64, 0, len(c.Datasets))
	for _, ds := range c.Datasets {
		if ds.YAxisID == pitchAxisID {
			continue
		}
		if i < 0 || i >= len(ds.Data) || ds.Data[i] == nil {
			out = append(out, 0)
			continue
		}
		out = append(out, *ds.Data[i])
	}
	return out
}

// Plan is everything a view needs to draw an analysis result.
type Plan struct {
	HasResult            bool                `json:"hasResult"`
	WavKey               string              `json:"wavKey"`
	ScaleType            string              `json:"scaleType"`
	Segments             SegmentSection      `json:"segments"`
	PitchGroups          PitchGroupSection   `json:"pitchGroups"`
	ConsolidatedSegments SegmentGroupSection `json:"consolidatedSegments"`
	Chart                Chart               `json:"chart"`
}

// NoResult is the plan shown when no analysis is available.
func NoResult() Plan {
	return Plan{
		WavKey:               NoResultWavKey,
		ScaleType:            NoResultScaleType,
		Segments:             SegmentSection{Placeholder: PlaceholderSegments},
		PitchGroups:          PitchGroupSection{Placeholder: PlaceholderPitchGroups},
		ConsolidatedSegments: SegmentGroupSection{Placeholder: PlaceholderConsolidated},
		Chart:                Chart{YTicks: yTicks(), Placeholder: PlaceholderChart},
	}
}

// Build transforms an analysis result into a rendering plan. It never fails;
// absent sections get their placeholder.
func Build(result *domain.AnalysisResult) Plan {
	if result == nil {
		return NoResult()
	}

	sorted := SortSegments(result.Segments)
	return Plan{
		HasResult:            true,
		WavKey:               result.WavKey,
		ScaleType:            result.ScaleType,
		Segments:             buildSegments(sorted),
		PitchGroups:          buildPitchGroups(result.PitchGroups),
		ConsolidatedSegments: buildSegmentGroups(result.ConsolidatedSegments),
		Chart:                buildChart(sorted),
	}
}

// SortSegments returns a copy of segments ordered by start time.
func SortSegments(segments []domain.Segment) []domain.Segment {
	sorted := make([]domain.Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTimeSec < sorted[j].StartTimeSec
	})
	return sorted
}

func buildSegments(sorted []domain.Segment) SegmentSection {
	if len(sorted) == 0 {
		return SegmentSection{Placeholder: PlaceholderSegments}
	}
	items := make([]SegmentItem, 0, len(sorted))
	for _, seg := range sorted {
		items = append(items, SegmentItem{
			Index:        seg.SegmentIndex,
			Header:       fmt.Sprintf("세그먼트 %d", seg.SegmentIndex),
			TimeRange:    fmt.Sprintf("%s초 - %s초", formatNumber(seg.StartTimeSec), formatNumber(seg.EndTimeSec)),
			StartTimeSec: seg.StartTimeSec,
			EndTimeSec:   seg.EndTimeSec,
			Details:      details(seg.VocalCord, seg.Contact, seg.Larynx, seg.Strength),
		})
	}
	return SegmentSection{Items: items}
}

func buildPitchGroups(groups []domain.PitchGroup) PitchGroupSection {
	if len(groups) == 0 {
		return PitchGroupSection{Placeholder: PlaceholderPitchGroups}
	}
	items := make([]PitchGroupItem, 0, len(groups))
	for _, group := range groups {
		hue := PitchHue(group.AvgPitch)
		items = append(items, PitchGroupItem{
			Title:        fmt.Sprintf("%s (%dHz)", group.PitchGroup, int(math.Round(group.AvgPitch))),
			TimeRange:    fmt.Sprintf("%.1f초 ~ %.1f초", group.StartTimeSec, group.EndTimeSec),
			Hue:          hue,
			Color:        fmt.Sprintf("hsl(%s, 70%%, 60%%)", formatNumber(hue)),
			StartTimeSec: group.StartTimeSec,
			EndTimeSec:   group.EndTimeSec,
			Attributes: []string{
				"성대: " + valueOrUnknown(group.VocalCord),
				"접촉: " + valueOrUnknown(group.Contact),
				"후두: " + valueOrUnknown(group.Larynx),
				"강도: " + valueOrUnknown(group.Strength),
			},
			Feedback: group.Feedback,
		})
	}
	return PitchGroupSection{Items: items}
}

func buildSegmentGroups(groups []domain.SegmentGroup) SegmentGroupSection {
	if len(groups) == 0 {
		return SegmentGroupSection{Placeholder: PlaceholderConsolidated}
	}
	items := make([]SegmentGroupItem, 0, len(groups))
	for _, group := range groups {
		meta := PlaceholderMerged
		if len(group.SegmentIndices) > 0 {
			indices := make([]string, 0, len(group.SegmentIndices))
			for _, idx := range group.SegmentIndices {
				indices = append(indices, strconv.Itoa(idx))
			}
			meta = fmt.Sprintf("세그먼트 %s 병합", strings.Join(indices, ", "))
		}
		items = append(items, SegmentGroupItem{
			Header:       fmt.Sprintf("%.2f초 ~ %.2f초", group.StartTimeSec, group.EndTimeSec),
			StartTimeSec: group.StartTimeSec,
			EndTimeSec:   group.EndTimeSec,
			Feedback:     group.Feedback,
			Details:      details(group.VocalCord, group.Contact, group.Larynx, group.Strength),
			Meta:         meta,
		})
	}
	return SegmentGroupSection{Items: items}
}

func buildChart(sorted []domain.Segment) Chart {
	chart := Chart{YTicks: yTicks()}
	if len(sorted) == 0 {
		chart.Placeholder = PlaceholderChart
		return chart
	}

	chart.Labels = make([]string, 0, len(sorted))
	vocalCord := make([]*float64, 0, len(sorted))
	contact := make([]*float64, 0, len(sorted))
	larynx := make([]*float64, 0, len(sorted))
	strength := make([]*float64, 0, len(sorted))
	pitch := make([]*float64, 0, len(sorted))
	hasPitch := false

	for _, seg := range sorted {
		chart.Labels = append(chart.Labels, fmt.Sprintf("%.2fs", seg.StartTimeSec))
		vocalCord = append(vocalCord, categoryPoint(seg.VocalCord))
		contact = append(contact, categoryPoint(seg.Contact))
		larynx = append(larynx, categoryPoint(seg.Larynx))
		strength = append(strength, categoryPoint(seg.Strength))
		if seg.Pitch != nil {
			hasPitch = true
			pitch = append(pitch, point(PitchToDisplay(*seg.Pitch)))
		} else {
			pitch = append(pitch, nil)
		}
	}

	chart.Datasets = []Dataset{
		categoryDataset(labelVocalCord, vocalCord, "255, 99, 132"),
		categoryDataset(labelContact, contact, "54, 162, 235"),
		categoryDataset(labelLarynx, larynx, "255, 206, 86"),
		categoryDataset(labelStrength, strength, "75, 192, 192"),
	}
	if hasPitch {
		chart.HasPitchAxis = true
		chart.Datasets = append(chart.Datasets, Dataset{
			Label:           pitchDatasetLabel,
			Data:            pitch,
			BackgroundColor: "rgba(153, 102, 255, 0.5)",
			BorderColor:     "rgba(153, 102, 255, 1)",
			BorderWidth:     1,
			BorderDash:      []int{5, 5},
			YAxisID:         pitchAxisID,
		})
	}
	return chart
}

func categoryDataset(label string, data []*float64, rgb string) Dataset {
	return Dataset{
		Label:           label,
		Data:            data,
		BackgroundColor: "rgba(" + rgb + ", 0.5)",
		BorderColor:     "rgba(" + rgb + ", 1)",
		BorderWidth:     1,
	}
}

func categoryPoint(label string) *float64 {
	return point(float64(CategoryValue(label)))
}

func point(v float64) *float64 { return &v }

func yTicks() []string {
	return append([]string(nil), categoryLabels[:]...)
}

func details(vocalCord, contact, larynx, strength string) []Detail {
	return []Detail{
		{Label: labelVocalCord, Value: valueOrUnknown(vocalCord)},
		{Label: labelContact, Value: valueOrUnknown(contact)},
		{Label: labelLarynx, Value: valueOrUnknown(larynx)},
		{Label: labelStrength, Value: valueOrUnknown(strength)},
	}
}

func valueOrUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return unknownLabel
	}
	return value
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
