package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"golang.org/x/sync/errgroup"

	"github.com/hugr-lab/recfilter/catalog"
	"github.com/hugr-lab/recfilter/query"
)

// Options configures a Scanner.
type Options struct {
	// Workers is the number of goroutines matching batches.
	// OPTIONAL: defaults to runtime.GOMAXPROCS(0).
	Workers int

	// Logger for scan diagnostics.
	// OPTIONAL: defaults to slog.Default().
	Logger *slog.Logger
}

// Stats summarizes a finished scan.
type Stats struct {
	Batches int64
	Scanned int64
	Matched int64
}

// BuildFunc turns matching records into a batch owned by the caller.
type BuildFunc func(records []query.Record) (arrow.RecordBatch, error)

// EmitFunc receives the matching rows of each input batch, in input order.
// The batch is released after EmitFunc returns; call Retain to keep it.
// Returning an error stops the scan.
type EmitFunc func(batch arrow.RecordBatch) error

// Scanner filters Arrow record streams with a Matcher.
// A Scanner is safe for concurrent use.
type Scanner struct {
	workers int
	logger  *slog.Logger
}

// NewScanner creates a Scanner. opts may be nil.
func NewScanner(opts *Options) *Scanner {
	s := &Scanner{workers: runtime.GOMAXPROCS(0), logger: slog.Default()}
	if opts != nil {
		if opts.Workers > 0 {
			s.workers = opts.Workers
		}
		if opts.Logger != nil {
			s.logger = opts.Logger
		}
	}
	return s
}

type job struct {
	batch arrow.RecordBatch
	out   chan result
}

type result struct {
	slices  []arrow.RecordBatch
	scanned int64
	matched int64
	err     error
}

func (r result) release() {
	for _, b := range r.slices {
		b.Release()
	}
}

// Scan reads every batch from reader, matches its rows in parallel and
// passes the matching rows to emit. Batches reach emit in reader order and
// batches without matches are skipped. The reader is not released.
func (s *Scanner) Scan(ctx context.Context, reader array.RecordReader, m Matcher, emit EmitFunc) (Stats, error) {
	var stats Stats

	eg, egCtx := errgroup.WithContext(ctx)
	jobs := make(chan job, s.workers)
	pending := make(chan chan result, s.workers)

	// read input batches; the reader is not safe for concurrent use
	eg.Go(func() error {
		defer close(jobs)
		defer close(pending)

		for reader.Next() {
			batch := reader.RecordBatch()
			batch.Retain()
			j := job{batch: batch, out: make(chan result, 1)}

			select {
			case pending <- j.out:
			case <-egCtx.Done():
				batch.Release()
				return egCtx.Err()
			}
			select {
			case jobs <- j:
			case <-egCtx.Done():
				batch.Release()
				j.out <- result{err: egCtx.Err()}
				return egCtx.Err()
			}
		}
		return reader.Err()
	})

	// match batches
	for w := 0; w < s.workers; w++ {
		eg.Go(func() error {
			for j := range jobs {
				var res result
				if err := egCtx.Err(); err != nil {
					res.err = err
				} else {
					res = matchBatch(j.batch, m)
				}
				j.batch.Release()
				j.out <- res
			}
			return nil
		})
	}

	// emit results in input order; every queued job receives exactly one
	// result, so the receive cannot block forever
	eg.Go(func() error {
		for out := range pending {
			res := <-out
			if err := egCtx.Err(); err != nil && res.err == nil {
				res.release()
				return err
			}
			if res.err != nil {
				res.release()
				return res.err
			}

			stats.Batches++
			stats.Scanned += res.scanned
			stats.Matched += res.matched
			observe(m.Strategy(), res.scanned, res.matched)

			var err error
			for _, b := range res.slices {
				if err == nil {
					err = emit(b)
				}
				b.Release()
			}
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		// release the results the emitter never reached
		for out := range pending {
			res := <-out
			res.release()
		}
		s.logger.Error("Scan failed",
			"strategy", m.Strategy(),
			"batches", stats.Batches,
			"error", err,
		)
		return stats, err
	}

	s.logger.Debug("Scan completed",
		"strategy", m.Strategy(),
		"batches", stats.Batches,
		"rows", stats.Scanned,
		"matched", stats.Matched,
	)
	return stats, nil
}

// ScanRecords matches records directly and passes each chunk of at most
// batchSize matching records to emit, as a batch made by build. Chunks reach
// emit in input order; chunks without matches are skipped. A batchSize of
// zero or less means catalog.DefaultBatchSize.
func (s *Scanner) ScanRecords(ctx context.Context, records []query.Record, m Matcher, batchSize int, build BuildFunc, emit EmitFunc) (Stats, error) {
	if batchSize <= 0 {
		batchSize = catalog.DefaultBatchSize
	}

	var stats Stats
	fail := func(err error) (Stats, error) {
		s.logger.Error("Record scan failed",
			"strategy", m.Strategy(),
			"batches", stats.Batches,
			"error", err,
		)
		return stats, err
	}

	for start := 0; start < len(records); start += batchSize {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		chunk := records[start:min(start+batchSize, len(records))]

		var matched []query.Record
		for i, rec := range chunk {
			ok, err := m.Match(rec)
			if err != nil {
				return fail(fmt.Errorf("record %d: %w", start+i, err))
			}
			if ok {
				matched = append(matched, rec)
			}
		}
		stats.Batches++
		stats.Scanned += int64(len(chunk))
		stats.Matched += int64(len(matched))
		observe(m.Strategy(), int64(len(chunk)), int64(len(matched)))
		if len(matched) == 0 {
			continue
		}

		batch, err := build(matched)
		if err != nil {
			return fail(fmt.Errorf("build batch: %w", err))
		}
		err = emit(batch)
		batch.Release()
		if err != nil {
			return fail(err)
		}
	}

	s.logger.Debug("Record scan completed",
		"strategy", m.Strategy(),
		"batches", stats.Batches,
		"rows", stats.Scanned,
		"matched", stats.Matched,
	)
	return stats, nil
}

func matchBatch(batch arrow.RecordBatch, m Matcher) result {
	records, err := catalog.RecordsFromBatch(batch)
	if err != nil {
		return result{err: fmt.Errorf("convert batch: %w", err)}
	}

	mask := make([]bool, len(records))
	var matched int64
	for i, rec := range records {
		ok, err := m.Match(rec)
		if err != nil {
			return result{err: fmt.Errorf("row %d: %w", i, err)}
		}
		if ok {
			mask[i] = true
			matched++
		}
	}
	return result{
		slices:  catalog.FilterBatch(batch, mask),
		scanned: int64(len(records)),
		matched: matched,
	}
}

// cancelCheckInterval is how many records Records evaluates between
// context checks.
const cancelCheckInterval = 1024

// Records returns the records selected by m, in input order.
func Records(ctx context.Context, records []query.Record, m Matcher) ([]query.Record, error) {
	var out []query.Record
	for i, rec := range records {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ok, err := m.Match(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if ok {
			out = append(out, rec)
		}
	}
	observe(m.Strategy(), int64(len(records)), int64(len(out)))
	return out, nil
}
