package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"github.com/prodimagery/product-imagery-service/internal/infra/metrics"
	"go.uber.org/zap"
)

const (
	fallbackProductName = "Detected Product"
	fallbackConfidence  = 0.6
	fallbackDescLimit   = 200
)

// fallbackKeywords is the fixed set scanned in a non-conforming analyzer
// response. Any hit synthesizes exactly one placeholder detection.
var fallbackKeywords = []string{
	"product", "item", "object", "thing", "device", "tool",
	"cosmetic", "makeup", "phone", "laptop", "book", "food", "drink",
}

type detectionCandidate struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
	IsGoodFrame bool    `json:"is_good_frame"`
}

type detectionResponse struct {
	Products []detectionCandidate `json:"products"`
}

// detect runs every sampled frame through the analyzer with the detection
// directive. The response is decoded once at this boundary: either it
// parses into structured candidates, or the keyword fallback applies.
// Candidates are accepted iff is_good_frame is true and confidence is
// strictly above the threshold; 0.5 itself is rejected.
func (p *Pipeline) detect(ctx context.Context, state *entity.RunState) {
	if state.Failed() {
		return
	}

	for _, frame := range state.Frames {
		image, err := p.store.ReadImage(frame.ImagePath)
		if err != nil {
			state.Fail(fmt.Sprintf("product detection failed: %v", err))
			return
		}

		raw, err := p.analyzer.Analyze(ctx, image, p.directives.Detection)
		if err != nil {
			state.Fail(fmt.Sprintf("product detection failed: %v", err))
			return
		}

		parsed, ok := parseDetectionResponse(raw)
		if ok {
			for _, c := range parsed.Products {
				if !c.IsGoodFrame || c.Confidence <= confidenceThreshold {
					continue
				}
				p.recordProduct(state, frame, &entity.ProductRecord{
					Name:               c.Name,
					Confidence:         c.Confidence,
					Description:        c.Description,
					Timestamp:          frame.Timestamp,
					EnhancedImagePaths: []string{},
				})
			}
			continue
		}

		if containsFallbackKeyword(raw) {
			p.logger.Warn("unparseable detection response, synthesizing fallback product",
				zap.Int("frame_index", frame.Index),
			)
			p.recordProduct(state, frame, &entity.ProductRecord{
				Name:               fallbackProductName,
				Confidence:         fallbackConfidence,
				Description:        truncate(raw, fallbackDescLimit),
				Timestamp:          frame.Timestamp,
				EnhancedImagePaths: []string{},
			})
		}
	}

	metrics.ProductsDetectedTotal.Add(float64(len(state.Products)))

	p.logger.Info("product detection completed",
		zap.String("video_id", state.VideoID),
		zap.Int("products", len(state.Products)),
	)
}

func (p *Pipeline) recordProduct(state *entity.RunState, frame *entity.FrameRecord, rec *entity.ProductRecord) {
	state.Products = append(state.Products, rec)
	frame.Detected = append(frame.Detected, rec)
}

func parseDetectionResponse(raw string) (*detectionResponse, bool) {
	var resp detectionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func containsFallbackKeyword(raw string) bool {
	lower := strings.ToLower(raw)
	for _, kw := range fallbackKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// truncate limits s to n characters, never splitting a rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
