package demux

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Sink consumes classified records. Put is called from one goroutine at a
// time.
type Sink interface {
	Put(rec *Record) error
}

// progressInterval is the number of records between two progress messages.
const progressInterval = 1 << 20

// workItem is a unit on the work queue: a chunk of reads, or a stop marker
// that makes the receiving worker exit.
type workItem struct {
	reads []Read
	stop  bool
}

// Run classifies the reads of src and hands each record to sink.
//
// total is the number of reads in src, as found by a pre-scan. With
// opts.Parallelism == 1 reads are classified on the calling goroutine and
// records reach sink in input order; total may then be negative if unknown.
// Otherwise src is split into opts.Parallelism chunks of ceil(total/P) reads,
// classified by P workers, and records reach sink in no particular order.
//
// Run fails if src does not hold exactly total reads, or if src, sink or a
// worker fails, or if ctx is canceled.
func Run(ctx context.Context, lib *Library, opts Opts, src Source, total int, sink Sink) (Stats, error) {
	if err := opts.Validate(); err != nil {
		return Stats{}, err
	}
	c := NewClassifier(lib, opts)
	if opts.Parallelism == 1 {
		return runSerial(ctx, c, src, total, sink)
	}
	if total < 0 {
		return Stats{}, errors.E(errors.Invalid, "parallel classification needs the read count")
	}
	return runParallel(ctx, c, opts.Parallelism, src, total, sink)
}

func runSerial(ctx context.Context, c *Classifier, src Source, total int, sink Sink) (Stats, error) {
	var (
		stats Stats
		r     Read
	)
	for src.Scan(&r) {
		if stats.Reads%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if stats.Reads > 0 {
				log.Printf("classified %dMi reads", stats.Reads/progressInterval)
			}
		}
		rec := c.Classify(r)
		stats.Add(rec)
		if err := sink.Put(rec); err != nil {
			return stats, err
		}
	}
	if err := src.Err(); err != nil {
		return stats, err
	}
	if total >= 0 && stats.Reads != total {
		return stats, errors.E(fmt.Sprintf("read %d reads, expected %d", stats.Reads, total))
	}
	log.Printf("classified %d reads", stats.Reads)
	return stats, nil
}

// run holds the shared state of a parallel run.
type run struct {
	c     *Classifier
	work  chan workItem
	res   chan *Record
	done  chan struct{}
	once  sync.Once
	errs  errors.Once
	stats []Stats // per worker
}

// abort records err and makes every goroutine of the run give up.
func (r *run) abort(err error) {
	r.errs.Set(err)
	r.once.Do(func() { close(r.done) })
}

func runParallel(ctx context.Context, c *Classifier, parallelism int, src Source, total int, sink Sink) (Stats, error) {
	chunkSize := (total + parallelism - 1) / parallelism
	nChunks := 0
	if chunkSize > 0 {
		nChunks = (total + chunkSize - 1) / chunkSize
	}
	r := &run{
		c:     c,
		work:  make(chan workItem, nChunks+parallelism),
		res:   make(chan *Record, 1024),
		done:  make(chan struct{}),
		stats: make([]Stats, parallelism),
	}

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		if err := r.dispatch(src, total, chunkSize, parallelism); err != nil {
			r.abort(err)
		}
	}()
	joined := make(chan struct{})
	go func() {
		defer close(joined)
		if err := traverse.Each(parallelism, r.worker); err != nil {
			r.abort(err)
		}
	}()

	n := 0
collect:
	for n < total {
		select {
		case rec := <-r.res:
			n++
			if err := sink.Put(rec); err != nil {
				r.abort(err)
				break collect
			}
			if n%progressInterval == 0 {
				log.Printf("collected %dMi of %d reads", n/progressInterval, total)
			}
		case <-r.done:
			break collect
		case <-ctx.Done():
			r.abort(ctx.Err())
			break collect
		}
	}
	<-dispatched
	<-joined
	var stats Stats
	for _, s := range r.stats {
		stats = stats.Merge(s)
	}
	if err := r.errs.Err(); err != nil {
		return stats, err
	}
	log.Printf("classified %d reads with %d workers", n, parallelism)
	return stats, nil
}

// dispatch splits src into chunks, queues them, then queues one stop marker
// per worker. The work queue is large enough to never block.
func (r *run) dispatch(src Source, total, chunkSize, parallelism int) error {
	var (
		n     int
		chunk []Read
		read  Read
	)
	send := func(item workItem) bool {
		select {
		case r.work <- item:
			return true
		case <-r.done:
			return false
		}
	}
	for n < total && src.Scan(&read) {
		if chunk == nil {
			chunk = make([]Read, 0, chunkSize)
		}
		chunk = append(chunk, read)
		n++
		if len(chunk) == chunkSize {
			if !send(workItem{reads: chunk}) {
				return nil
			}
			chunk = nil
		}
	}
	if err := src.Err(); err != nil {
		return err
	}
	if n < total {
		return errors.E(fmt.Sprintf("read %d reads, expected %d", n, total))
	}
	if src.Scan(&read) {
		return errors.E(fmt.Sprintf("input holds more than the expected %d reads", total))
	}
	if err := src.Err(); err != nil {
		return err
	}
	if len(chunk) > 0 && !send(workItem{reads: chunk}) {
		return nil
	}
	for i := 0; i < parallelism; i++ {
		if !send(workItem{stop: true}) {
			return nil
		}
	}
	return nil
}

// worker classifies chunks until it receives a stop marker. Records are sent
// to the collector one at a time.
func (r *run) worker(id int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.E(fmt.Sprintf("worker %d: panic: %v\n%s", id, p, debug.Stack()))
			r.abort(err)
		}
	}()
	stats := &r.stats[id]
	for {
		var item workItem
		select {
		case item = <-r.work:
		case <-r.done:
			return nil
		}
		if item.stop {
			return nil
		}
		for i := range item.reads {
			rec := r.c.Classify(item.reads[i])
			stats.Add(rec)
			select {
			case r.res <- rec:
			case <-r.done:
				return nil
			}
		}
	}
}
