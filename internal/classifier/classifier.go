package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Prediction is the outcome of classifying a banknote image.
type Prediction struct {
	Label      string  `json:"predicted_class"`
	Confidence float64 `json:"confidence"`
}

// Classifier recognizes the denomination of a banknote image. The model
// itself runs in an external inference service; this process only forwards
// image bytes and reads back a label with a confidence score.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Prediction, error)
}

// HTTPClassifier forwards images to an inference sidecar over HTTP.
type HTTPClassifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTP builds a classifier client for the inference service at baseURL.
func NewHTTP(baseURL string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Classify posts the image as a multipart upload and decodes the prediction.
func (c *HTTPClassifier) Classify(ctx context.Context, image []byte) (Prediction, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "banknote")
	if err != nil {
		return Prediction{}, err
	}
	if _, err := part.Write(image); err != nil {
		return Prediction{}, err
	}
	if err := writer.Close(); err != nil {
		return Prediction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, payload)
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return Prediction{}, fmt.Errorf("decode classifier response: %w", err)
	}
	return prediction, nil
}

// Static always returns the same prediction. Used in dev mode and tests when
// no inference service is configured.
type Static struct {
	Prediction Prediction
}

// Classify returns the configured prediction.
func (s Static) Classify(_ context.Context, _ []byte) (Prediction, error) {
	return s.Prediction, nil
}
