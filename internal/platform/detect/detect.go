// Package detect adapts an external object-detection model server for
// dental radiograph analysis. The server returns raw class/confidence/box
// detections; this package normalizes coordinates, converts confidence to
// a percentage, and attaches triage metadata to each finding.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "image/jpeg"
	_ "image/png"
)

// ErrUnavailable reports that the model server cannot be reached or has no
// model loaded. Callers treat it differently from a failed analysis.
var ErrUnavailable = errors.New("detection service unavailable")

// BBox is a detection box with corners normalized to [0,1] of the image.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Finding is a single detection enriched with triage metadata.
type Finding struct {
	Name            string  `json:"name"`
	Location        string  `json:"location"`
	Confidence      float64 `json:"confidence"`
	Risk            string  `json:"risk"`
	Description     string  `json:"description"`
	Recommendations string  `json:"recommendations"`
	BBox            BBox    `json:"bbox"`
}

// ImageSize holds the pixel dimensions of the analyzed radiograph.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detector analyzes a radiograph stored on local disk.
type Detector interface {
	Analyze(ctx context.Context, imagePath string) ([]Finding, *ImageSize, error)
	Ready(ctx context.Context) bool
}

// rawDetection is a single entry in the model server's response.
type rawDetection struct {
	ClassName  string    `json:"class_name"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"`
}

type detectResponse struct {
	Detections []rawDetection `json:"detections"`
}

// HTTPDetector calls a model-serving endpoint over HTTP.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDetector creates a detector for the model server at baseURL. The
// timeout bounds the whole analyze call.
func NewHTTPDetector(baseURL string, timeout time.Duration) *HTTPDetector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDetector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Ready reports whether the model server answers its health endpoint.
func (d *HTTPDetector) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// Analyze sends the image to the model server and converts its raw
// detections into triaged findings with normalized coordinates.
func (d *HTTPDetector) Analyze(ctx context.Context, imagePath string) ([]Finding, *ImageSize, error) {
	size, err := readImageSize(imagePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading image dimensions: %w", err)
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", body)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, nil, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("model server returned status %d", resp.StatusCode)
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("decoding model response: %w", err)
	}

	findings := make([]Finding, 0, len(out.Detections))
	for _, det := range out.Detections {
		if len(det.BBox) != 4 {
			continue
		}
		findings = append(findings, Finding{
			Name:            det.ClassName,
			Location:        "Detected",
			Confidence:      ConfidencePercent(det.Confidence),
			Risk:            DetermineRisk(det.ClassName),
			Description:     DescriptionFor(det.ClassName),
			Recommendations: RecommendationsFor(det.ClassName),
			BBox: NormalizeBBox(det.BBox[0], det.BBox[1], det.BBox[2], det.BBox[3],
				size.Width, size.Height),
		})
	}

	return findings, size, nil
}

// NormalizeBBox converts pixel corner coordinates to fractions of the
// image dimensions.
func NormalizeBBox(x1, y1, x2, y2 float64, width, height int) BBox {
	w := float64(width)
	h := float64(height)
	return BBox{
		X1: x1 / w,
		Y1: y1 / h,
		X2: x2 / w,
		Y2: y2 / h,
	}
}

// ConfidencePercent converts a [0,1] model score to a percentage rounded
// to two decimal places.
func ConfidencePercent(conf float64) float64 {
	return math.Round(conf*10000) / 100
}

func readImageSize(path string) (*ImageSize, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, err
	}
	return &ImageSize{Width: cfg.Width, Height: cfg.Height}, nil
}
