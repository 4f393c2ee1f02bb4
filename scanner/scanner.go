package scanner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"photocull/config"
	"photocull/duplicates"
	"photocull/imageprocessor"
	"photocull/logging"
	"photocull/rating"
	"photocull/series"
	"photocull/types"
	"photocull/xmp"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// PhotoSource decodes photos and reads what the barrier stages need
type PhotoSource interface {
	Load(path string) (gocv.Mat, error)
	Fingerprint(img gocv.Mat) (string, error)
	CaptureTime(path string) (time.Time, bool)
}

// Pipeline runs one culling pass over a folder
type Pipeline struct {
	cfg      *config.Config
	source   PhotoSource
	strategy Strategy
	logger   zerolog.Logger
}

// NewPipeline creates a pipeline scoring with strategy
func NewPipeline(cfg *config.Config, source PhotoSource, strategy Strategy) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		source:   source,
		strategy: strategy,
		logger:   logging.WithComponent("scanner"),
	}
}

// Run analyses every photo in options.FolderPath, groups duplicates and
// series, rates each record and writes the sidecars. Per-photo failures never
// abort the run. On cancellation no further photo is started or written and
// the context error is returned with the records processed so far.
func (p *Pipeline) Run(ctx context.Context, options Options) (*Result, error) {
	startTime := time.Now()

	files, err := FindPhotos(options.FolderPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPhotos, options.FolderPath)
	}

	records := PairByStem(files)
	stats := countFiles(files, records)
	PrintStartupInfo(options.Out, stats, options, p.strategy.Name())

	result := &Result{Records: records}

	analysed, decodeFailures, scoringFailures, err := p.analyzeAll(ctx, records, stats, options)
	if err != nil {
		// records are unrated, so only the analysis counts are reported
		result.Summary = Summary{
			Strategy:        p.strategy.Name(),
			Photos:          len(records),
			Analysed:        analysed,
			Files:           stats.totalFiles,
			RAFFiles:        stats.rawFiles,
			JPEGFiles:       stats.jpegFiles,
			DecodeFailures:  decodeFailures,
			ScoringFailures: scoringFailures,
			Elapsed:         time.Since(startTime),
		}
		return result, err
	}

	// barrier: every record has its hash and timestamp
	dupGroups := duplicates.FindGroups(records, p.cfg.Duplicates.Threshold)
	seriesGroups := series.GroupIntoSeries(records, series.Gap(p.cfg.Series.GapSeconds))
	rating.RateAll(records, p.strategy.Policy())

	if options.Verbose {
		for _, rec := range records {
			p.logger.Info().Msgf("%s: ★%d (score=%.2f, %s)", rec.Stem, rec.Rating, rec.CompositeScore, rec.RatingReason)
		}
	}

	written, failed, err := p.writeSidecars(ctx, records, options.DryRun)

	result.Summary = Summarize(records, stats)
	result.Summary.Strategy = p.strategy.Name()
	result.Summary.Analysed = analysed
	result.Summary.DuplicateGroups = dupGroups
	result.Summary.SeriesGroups = seriesGroups
	result.Summary.DecodeFailures = decodeFailures
	result.Summary.ScoringFailures = scoringFailures
	result.Summary.SidecarsWritten = written
	result.Summary.SidecarFailures = failed
	result.Summary.Elapsed = time.Since(startTime)

	return result, err
}

// analyzeAll fills the per-photo fields of every record in parallel. Each
// worker owns exactly one record.
func (p *Pipeline) analyzeAll(ctx context.Context, records []types.PhotoRecord, stats FileStats, options Options) (analysed, decodeFailures, scoringFailures int, err error) {
	workers := options.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	resultsChan := make(chan ProcessImageResult, len(records))
	// verbose runs log one line per photo, which the \r progress line would overwrite
	tracker := NewProgressTracker(options.Out, stats, options.Verbose, resultsChan)

	startTime := time.Now()
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i := range records {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := p.processOne(ctx, &records[i])
			res.Index = i
			if options.Verbose {
				p.logger.Info().Msgf("[%d/%d] %s: %s", i+1, len(records), records[i].Stem, p.strategy.Describe(records[i]))
			}
			resultsChan <- res
			return nil
		})
	}

	g.Wait()
	close(resultsChan)
	tracker.Wait()
	PrintCompletionStats(options.Out, tracker, startTime)

	analysed, decodeFailures, scoringFailures = tracker.Counts()
	return analysed, decodeFailures, scoringFailures, ctx.Err()
}

// processOne runs load, scoring, fingerprint and timestamp for one record
func (p *Pipeline) processOne(ctx context.Context, rec *types.PhotoRecord) ProcessImageResult {
	res := ProcessImageResult{
		Path:    rec.Path,
		IsRaw:   imageprocessor.IsRawFormat(rec.Path),
		Success: true,
	}

	img, err := p.source.Load(rec.Path)
	defer img.Close()

	var pixels *gocv.Mat
	if err != nil {
		rec.LoadError = err.Error()
		res.Success = false
		res.Error = err
	} else {
		pixels = &img
	}

	if err := p.strategy.Score(ctx, rec, pixels); err != nil {
		res.ScoringError = err
		p.logger.Debug().Str("stem", rec.Stem).Err(err).Msg("scoring failed")
	}

	if pixels != nil {
		hash, err := p.source.Fingerprint(img)
		if err != nil {
			p.logger.Debug().Str("stem", rec.Stem).Err(err).Msg("no fingerprint")
		} else {
			rec.Hash = hash
		}
	}

	if t, ok := p.source.CaptureTime(rec.MetadataPath()); ok {
		rec.CapturedAt = t
	}

	return res
}

// writeSidecars writes one sidecar per record in order, stopping between
// photos when ctx is cancelled
func (p *Pipeline) writeSidecars(ctx context.Context, records []types.PhotoRecord, dryRun bool) (written, failed int, err error) {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return written, failed, err
		}

		path, err := xmp.Write(rec.Path, rec.Rating, dryRun)
		if err != nil {
			failed++
			p.logger.Warn().Str("stem", rec.Stem).Err(err).Msg("sidecar not written")
			continue
		}
		written++
		p.logger.Debug().Str("sidecar", path).Int("rating", rec.Rating).Bool("dry_run", dryRun).Msg("sidecar")
	}
	return written, failed, nil
}
