package nsfw

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Classifier scores files for unsafe content. One call classifies the
// whole batch; per-file calls would pay the model invocation overhead
// once per frame instead of once per video.
type Classifier interface {
	// Classify returns an unsafe score in [0,1] per input path.
	Classify(ctx context.Context, paths []string) (map[string]float64, error)
}

// HTTPClassifier talks to an external inference service. The model
// itself is an opaque capability; this client only ships frames out
// and scores back.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type classifyResponse struct {
	Results []struct {
		Name   string  `json:"name"`
		Unsafe float64 `json:"unsafe"`
	} `json:"results"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, paths []string) (map[string]float64, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeFrames(writer, paths)
		if cerr := writer.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}

	// The service keys results by basename; map them back to the
	// caller's paths.
	byName := make(map[string]float64, len(decoded.Results))
	for _, r := range decoded.Results {
		byName[r.Name] = r.Unsafe
	}
	scores := make(map[string]float64, len(paths))
	for _, p := range paths {
		scores[p] = byName[filepath.Base(p)]
	}
	return scores, nil
}

func writeFrames(writer *multipart.Writer, paths []string) error {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open frame %s: %w", filepath.Base(p), err)
		}
		part, err := writer.CreateFormFile("images", filepath.Base(p))
		if err != nil {
			f.Close()
			return err
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return fmt.Errorf("copy frame %s: %w", filepath.Base(p), err)
		}
		f.Close()
	}
	return nil
}
