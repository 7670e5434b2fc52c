package nsfw

import (
	"context"
	"fmt"
)

// Moderator applies the configured threshold to classifier scores.
// A zero threshold disables moderation: the classifier is never
// invoked, so the model is not loaded for deployments that opted out.
type Moderator struct {
	classifier Classifier
	threshold  float64
}

func NewModerator(classifier Classifier, threshold float64) *Moderator {
	return &Moderator{classifier: classifier, threshold: threshold}
}

func (m *Moderator) Enabled() bool {
	return m != nil && m.threshold > 0 && m.classifier != nil
}

// CheckImage reports whether the single image at path is unsafe.
func (m *Moderator) CheckImage(ctx context.Context, path string) (bool, error) {
	unsafe, err := m.CheckBatch(ctx, []string{path})
	if err != nil {
		return false, err
	}
	return unsafe, nil
}

// CheckBatch classifies all paths in one call and reports unsafe if
// any of them scores at or above the threshold. Worst frame wins.
func (m *Moderator) CheckBatch(ctx context.Context, paths []string) (bool, error) {
	if !m.Enabled() || len(paths) == 0 {
		return false, nil
	}
	scores, err := m.classifier.Classify(ctx, paths)
	if err != nil {
		return false, fmt.Errorf("classify: %w", err)
	}
	for _, score := range scores {
		if score >= m.threshold {
			return true, nil
		}
	}
	return false, nil
}
