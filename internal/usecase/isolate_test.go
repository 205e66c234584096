package usecase

import (
	"context"
	"testing"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolateMatchesFirstFrameWithinTolerance(t *testing.T) {
	analyzer := &fakeAnalyzer{defaultResponse: emptyDetection}
	p := newTestPipeline(t, &fakeFetcher{}, &fakeDecoder{}, analyzer)
	// Frames at 0s, 2s, 4s.
	state := seedSampledState(t, p, 3)

	// 1.5s is within tolerance of the 2s frame only.
	state.Products = append(state.Products, &entity.ProductRecord{
		Name:               "Mug",
		Confidence:         0.8,
		Timestamp:          1.5,
		EnhancedImagePaths: []string{},
	})

	p.isolate(context.Background(), state)

	require.False(t, state.Failed())
	product := state.Products[0]
	assert.Equal(t, "/output/frame_seeded_60.jpg", product.FrameImagePath)
	assert.Equal(t, "/output/segmented_Mug_1.jpg", product.IsolatedImagePath)
	assert.True(t, p.store.Exists(p.store.LocalPath(product.IsolatedImagePath)))
}

func TestIsolateFirstMatchWins(t *testing.T) {
	analyzer := &fakeAnalyzer{defaultResponse: emptyDetection}
	p := newTestPipeline(t, &fakeFetcher{}, &fakeDecoder{}, analyzer)

	state := entity.NewRunState("https://youtube.com/watch?v=seeded")
	state.VideoID = "seeded"
	for i, ts := range []float64{1.0, 1.4} {
		path := p.store.FramePath(state.VideoID, i)
		require.NoError(t, p.store.SaveImage(path, []byte("frame")))
		state.Frames = append(state.Frames, &entity.FrameRecord{
			Index:     i,
			Timestamp: ts,
			ImagePath: path,
			Detected:  []*entity.ProductRecord{},
		})
	}

	// Both frames are within tolerance of 1.2s; the earlier one is taken.
	state.Products = append(state.Products, &entity.ProductRecord{
		Name:               "Pen",
		Confidence:         0.8,
		Timestamp:          1.2,
		EnhancedImagePaths: []string{},
	})

	p.isolate(context.Background(), state)

	require.False(t, state.Failed())
	assert.Equal(t, "/output/frame_seeded_0.jpg", state.Products[0].FrameImagePath)
}

func TestIsolateExactToleranceIsExcluded(t *testing.T) {
	analyzer := &fakeAnalyzer{defaultResponse: emptyDetection}
	p := newTestPipeline(t, &fakeFetcher{}, &fakeDecoder{}, analyzer)
	state := seedSampledState(t, p, 2)

	// Frames sit at 0s and 2s; 1.0 is exactly the tolerance from the first
	// and 1.0 from the second, so strictly-less-than matches neither.
	state.Products = append(state.Products, &entity.ProductRecord{
		Name:               "Clock",
		Confidence:         0.8,
		Timestamp:          1.0,
		EnhancedImagePaths: []string{},
	})

	p.isolate(context.Background(), state)

	require.False(t, state.Failed())
	assert.Empty(t, state.Products[0].IsolatedImagePath)
	assert.Empty(t, state.Products[0].FrameImagePath)
}

func TestIsolateNoMatchingFrameIsNotAnError(t *testing.T) {
	analyzer := &fakeAnalyzer{defaultResponse: emptyDetection}
	p := newTestPipeline(t, &fakeFetcher{}, &fakeDecoder{}, analyzer)
	state := seedSampledState(t, p, 1)

	state.Products = append(state.Products, &entity.ProductRecord{
		Name:               "Ghost",
		Confidence:         0.9,
		Timestamp:          99.0,
		EnhancedImagePaths: []string{},
	})

	p.isolate(context.Background(), state)
	p.enhance(context.Background(), state)

	require.False(t, state.Failed())
	assert.Empty(t, state.Products[0].IsolatedImagePath)
	// Unisolated products are skipped by enhancement.
	assert.Empty(t, state.Products[0].EnhancedImagePaths)
	assert.Zero(t, analyzer.enhanceCalls)
}

func TestEnhanceProducesStyleOrderedRenders(t *testing.T) {
	analyzer := &fakeAnalyzer{defaultResponse: emptyDetection}
	p := newTestPipeline(t, &fakeFetcher{}, &fakeDecoder{}, analyzer)
	state := seedSampledState(t, p, 1)

	state.Products = append(state.Products, &entity.ProductRecord{
		Name:               "Desk Lamp",
		Confidence:         0.9,
		Timestamp:          0.0,
		EnhancedImagePaths: []string{},
	})

	p.isolate(context.Background(), state)
	p.enhance(context.Background(), state)

	require.False(t, state.Failed())
	product := state.Products[0]
	require.Len(t, product.EnhancedImagePaths, 3)
	assert.Equal(t, "/output/enhanced_Desk_Lamp_1_0.jpg", product.EnhancedImagePaths[0])
	assert.Equal(t, "/output/enhanced_Desk_Lamp_2_0.jpg", product.EnhancedImagePaths[1])
	assert.Equal(t, "/output/enhanced_Desk_Lamp_3_0.jpg", product.EnhancedImagePaths[2])
	assert.Equal(t, 3, analyzer.enhanceCalls)

	for _, pub := range product.EnhancedImagePaths {
		assert.True(t, p.store.Exists(p.store.LocalPath(pub)))
	}
}
