package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSampledState builds a state as the sampling stage would leave it: one
// persisted frame per entry, timestamps two seconds apart.
func seedSampledState(t *testing.T, p *Pipeline, frameCount int) *entity.RunState {
	t.Helper()
	state := entity.NewRunState("https://youtube.com/watch?v=seeded")
	state.VideoID = "seeded"
	for i := 0; i < frameCount; i++ {
		index := i * 60
		path := p.store.FramePath(state.VideoID, index)
		require.NoError(t, p.store.SaveImage(path, []byte(fmt.Sprintf("frame-%d", index))))
		state.Frames = append(state.Frames, &entity.FrameRecord{
			Index:     index,
			Timestamp: float64(index) / 30.0,
			ImagePath: path,
			Detected:  []*entity.ProductRecord{},
		})
	}
	return state
}

func TestDetectConfidenceGating(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     int
	}{
		{
			name:     "above threshold and good frame",
			response: `{"products": [{"name": "Lamp", "confidence": 0.51, "description": "desk lamp", "is_good_frame": true}]}`,
			want:     1,
		},
		{
			name:     "threshold itself is rejected",
			response: `{"products": [{"name": "Lamp", "confidence": 0.5, "description": "desk lamp", "is_good_frame": true}]}`,
			want:     0,
		},
		{
			name:     "high confidence but bad frame",
			response: `{"products": [{"name": "Lamp", "confidence": 0.95, "description": "desk lamp", "is_good_frame": false}]}`,
			want:     0,
		},
		{
			name: "mixed candidates keep only qualifying ones",
			response: `{"products": [
				{"name": "Lamp", "confidence": 0.9, "description": "a", "is_good_frame": true},
				{"name": "Mug", "confidence": 0.4, "description": "b", "is_good_frame": true},
				{"name": "Pen", "confidence": 0.8, "description": "c", "is_good_frame": false}
			]}`,
			want: 1,
		},
		{
			name:     "empty product list",
			response: `{"products": []}`,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{defaultResponse: tt.response}
			p := newTestPipeline(t, &fakeFetcher{}, &fakeDecoder{}, analyzer)
			state := seedSampledState(t, p, 1)

			p.detect(context.Background(), state)

			require.False(t, state.Failed())
			assert.Len(t, state.Products, tt.want)
			assert.Len(t, state.Frames[0].Detected, tt.want)
		})
	}
}

func TestDetectKeywordFallback(t *testing.T) {
	longTail := strings.Repeat("x", 300)

	tests := []struct {
		name      string
		response  string
		wantMatch bool
	}{
		{"plain text with keyword", "I can see a nice product on the table", true},
		{"keyword is matched case-insensitively", "There is a LAPTOP in view", true},
		{"no keyword present", "Nothing interesting here", false},
		{"long response", "this phone " + longTail, true},
		{"long multibyte response", "ce téléphone est posé sur la table " + strings.Repeat("é", 300), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{defaultResponse: tt.response}
			p := newTestPipeline(t, &fakeFetcher{}, &fakeDecoder{}, analyzer)
			state := seedSampledState(t, p, 1)

			p.detect(context.Background(), state)

			require.False(t, state.Failed())
			if !tt.wantMatch {
				assert.Empty(t, state.Products)
				return
			}

			require.Len(t, state.Products, 1)
			got := state.Products[0]
			assert.Equal(t, "Detected Product", got.Name)
			assert.InDelta(t, 0.6, got.Confidence, 1e-9)
			assert.LessOrEqual(t, utf8.RuneCountInString(got.Description), 200)
			assert.True(t, utf8.ValidString(got.Description))
			assert.True(t, strings.HasPrefix(tt.response, got.Description))
			assert.Equal(t, state.Frames[0].Timestamp, got.Timestamp)
		})
	}
}

func TestDetectFallbackSynthesizesOnePerFrame(t *testing.T) {
	analyzer := &fakeAnalyzer{defaultResponse: "looks like a device and a phone and an item"}
	p := newTestPipeline(t, &fakeFetcher{}, &fakeDecoder{}, analyzer)
	state := seedSampledState(t, p, 3)

	p.detect(context.Background(), state)

	require.False(t, state.Failed())
	// Multiple keyword hits in one response still produce a single record.
	assert.Len(t, state.Products, 3)
	for _, frame := range state.Frames {
		assert.Len(t, frame.Detected, 1)
	}
}

func TestParseDetectionResponse(t *testing.T) {
	resp, ok := parseDetectionResponse(`{"products": [{"name": "A", "confidence": 0.7, "is_good_frame": true}]}`)
	require.True(t, ok)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "A", resp.Products[0].Name)

	_, ok = parseDetectionResponse("definitely not json")
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
	assert.Equal(t, "éé", truncate("ééé", 2))

	// Counting is by character, and a multi-byte rune at the cut is kept
	// whole rather than split.
	mixed := strings.Repeat("a", 199) + "é" + strings.Repeat("b", 50)
	got := truncate(mixed, 200)
	assert.Equal(t, strings.Repeat("a", 199)+"é", got)
	assert.Equal(t, 200, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}
