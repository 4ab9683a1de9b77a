package service

import (
	"context"
	"imageconverter/internal/core/domain"
	"imageconverter/internal/core/port"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const DefaultWorkers = 4

// Job converts the file at Input into Target and stores the result at Output.
type Job struct {
	Input   string
	Output  string
	Target  domain.Format
	Options []domain.RequestOption
}

type JobResult struct {
	Job      Job
	Format   domain.Format
	Bytes    int
	Duration time.Duration
	Err      error
}

// BatchConverter runs independent conversions on a bounded pool. A failed job never affects the others.
type BatchConverter struct {
	converter port.ImageConverter
	store     port.FileStore
	workers   int
}

func NewBatchConverter(converter port.ImageConverter, store port.FileStore, workers int) *BatchConverter {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &BatchConverter{converter: converter, store: store, workers: workers}
}

// ConvertFiles returns one result per job, in the order the jobs were given.
func (b *BatchConverter) ConvertFiles(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))

	p := pool.New().WithMaxGoroutines(b.workers)
	for i, job := range jobs {
		p.Go(func() {
			results[i] = b.convertFile(ctx, job)
		})
	}
	p.Wait()

	return results
}

func (b *BatchConverter) convertFile(ctx context.Context, job Job) JobResult {
	l := log.With().Str("input", job.Input).Str("target", job.Target.String()).Logger()
	start := time.Now()
	result := JobResult{Job: job}

	source, err := b.store.Read(job.Input)
	if err != nil {
		result.Err = err
		return result
	}

	converted, err := b.converter.Convert(ctx, domain.NewConversionRequest(source, job.Target, job.Options...))
	if err != nil {
		l.Warn().Err(err).Msg("conversion failed")
		result.Err = err
		return result
	}

	if err := b.store.Write(job.Output, converted.Bytes()); err != nil {
		result.Err = err
		return result
	}

	result.Format = converted.Format()
	result.Bytes = converted.Size()
	result.Duration = time.Since(start)

	l.Info().Str("output", job.Output).Int("bytes", result.Bytes).Dur("took", result.Duration).
		Msg("converted file")

	return result
}
