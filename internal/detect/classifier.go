package detect

import (
	"context"
	"log/slog"
	"os"

	"tapedeck/internal/config"
	"tapedeck/internal/logging"
	"tapedeck/internal/media/ffprobe"
)

// Prober inspects one media file. Production uses ffprobe; tests inject a
// fake.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Result reports the outcome of a classification run.
type Result struct {
	Format        string
	Confidence    float64
	Scores        map[string]float64
	FilenameVotes map[string]int
	FilesAnalyzed int
}

// Classifier scores capture files against the known tape signatures.
type Classifier struct {
	defaultFormat string
	logger        *slog.Logger
	probe         Prober
}

// Option customizes classifier construction.
type Option func(*Classifier)

// WithProber overrides the media inspector, primarily for tests.
func WithProber(probe Prober) Option {
	return func(c *Classifier) {
		if probe != nil {
			c.probe = probe
		}
	}
}

// NewClassifier builds a classifier using the configured default format and
// the ffprobe binary from config.
func NewClassifier(cfg *config.Config, logger *slog.Logger, opts ...Option) *Classifier {
	binary := cfg.FFprobeBinary()
	classifier := &Classifier{
		defaultFormat: CanonicalFormat(cfg.Detection.DefaultFormat),
		logger:        logging.NewComponentLogger(logger, "detect"),
		probe: func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, binary, path)
		},
	}
	for _, opt := range opts {
		opt(classifier)
	}
	return classifier
}

// Classify analyzes the given files and returns the best-matching tape
// format. Files that cannot be analyzed are skipped; when nothing is
// analyzable the configured default format is returned with zero confidence.
func (c *Classifier) Classify(ctx context.Context, paths []string) (Result, error) {
	perFile := make([]map[string]float64, 0, len(paths))
	votes := make(map[string]int)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if _, err := os.Stat(path); err != nil {
			c.logger.Warn("skipping missing file", "path", path, logging.Error(err))
			continue
		}
		probed, err := c.probe(ctx, path)
		if err != nil {
			c.logger.Warn("media inspection failed, skipping file", "path", path, logging.Error(err))
			continue
		}
		features, ok := extractFeatures(path, probed)
		if !ok {
			c.logger.Warn("no video stream, skipping file", "path", path)
			continue
		}

		scores := make(map[string]float64, len(signatures))
		for _, sig := range signatures {
			scores[sig.Name] = scoreSignature(sig, features)
		}
		perFile = append(perFile, scores)

		if hint, ok := FilenameHint(baseName(path)); ok {
			votes[hint]++
		}
	}

	if len(perFile) == 0 {
		c.logger.Warn("no analyzable files, using default format",
			logging.String(logging.FieldFormat, c.defaultFormat))
		return Result{
			Format:        c.defaultFormat,
			Scores:        map[string]float64{},
			FilenameVotes: votes,
		}, nil
	}

	result := aggregate(perFile, votes)
	c.logger.Info("tape format classified",
		logging.String(logging.FieldFormat, result.Format),
		logging.Float64("confidence", result.Confidence),
		logging.Int("files", result.FilesAnalyzed),
	)
	return result, nil
}

// aggregate averages per-file scores, applies the filename vote boost, and
// picks the winner deterministically: highest boosted score, then highest
// un-boosted score, then signature order.
func aggregate(perFile []map[string]float64, votes map[string]int) Result {
	files := len(perFile)
	averaged := make(map[string]float64, len(signatures))
	for _, sig := range signatures {
		total := 0.0
		for _, scores := range perFile {
			total += scores[sig.Name]
		}
		averaged[sig.Name] = total / float64(files)
	}

	boosted := make(map[string]float64, len(averaged))
	for name, score := range averaged {
		boosted[name] = score
	}
	for format, count := range votes {
		if _, ok := boosted[format]; ok {
			boosted[format] += float64(count) / float64(files) * 0.5
		}
	}

	best := signatures[0].Name
	for _, sig := range signatures[1:] {
		name := sig.Name
		switch {
		case boosted[name] > boosted[best]:
			best = name
		case boosted[name] == boosted[best] && averaged[name] > averaged[best]:
			best = name
		}
	}

	return Result{
		Format:        best,
		Confidence:    boosted[best],
		Scores:        boosted,
		FilenameVotes: votes,
		FilesAnalyzed: files,
	}
}
