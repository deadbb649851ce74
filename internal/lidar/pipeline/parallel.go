package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/spinframe/internal/lidar/l2frames"
)

type result[P any] struct {
	scans []l2frames.Scan[P]
	err   error
}

// Run processes src until io.EOF with conversion spread over the
// configured number of workers, sending frames to out in stream order. It
// closes out before returning.
//
// Packets are dealt to the workers round-robin through bounded queues and
// the results are collected in the same rotation, which restores packet
// order without a reorder buffer. A full queue blocks the reader.
//
// Run returns nil at end of stream, ctx.Err() when cancelled, and the
// first fatal error otherwise. A source blocked in ReadPacket is not
// interrupted by cancellation.
func (p *Pipeline[P]) Run(ctx context.Context, src Source, out chan<- *l2frames.Frame[P]) error {
	defer close(out)

	g, ctx := errgroup.WithContext(ctx)

	in := make([]chan job, p.workers)
	done := make([]chan result[P], p.workers)
	for i := range in {
		in[i] = make(chan job, p.depth)
		done[i] = make(chan result[P], p.depth)
	}

	// Reader: sequential decode and extraction.
	g.Go(func() error {
		defer func() {
			for _, ch := range in {
				close(ch)
			}
		}()

		next := 0
		send := func(j job) error {
			select {
			case in[next] <- j:
				next = (next + 1) % len(in)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := src.ReadPacket()
			if errors.Is(err, io.EOF) {
				if j := p.front.flush(); !j.empty() {
					return send(j)
				}
				return nil
			}
			if err != nil {
				return fmt.Errorf("read packet: %w", err)
			}

			j, err := p.extract(b)
			if err != nil {
				if Skippable(err) {
					continue
				}
				return err
			}
			if err := send(j); err != nil {
				return err
			}
		}
	})

	// Workers: pure conversion.
	for i := range in {
		g.Go(func() error {
			defer close(done[i])
			for j := range in[i] {
				scans, err := p.front.convert(j)
				select {
				case done[i] <- result[P]{scans: scans, err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	// Batcher: collect in rotation order.
	g.Go(func() error {
		emit := func(frames []*l2frames.Frame[P]) error {
			for _, f := range frames {
				select {
				case out <- f:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}

		for next := 0; ; next = (next + 1) % len(done) {
			var r result[P]
			var ok bool
			select {
			case r, ok = <-done[next]:
			case <-ctx.Done():
				return ctx.Err()
			}
			if !ok {
				break
			}
			if r.err != nil {
				p.reject(r.err)
				return r.err
			}
			if err := emit(p.batch(r.scans, nil)); err != nil {
				return err
			}
		}

		if f := p.batcher.Finish(); f != nil {
			return emit([]*l2frames.Frame[P]{p.observe(f)})
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		opsf("sensor %s: run stopped: %v", p.sensorID, err)
	} else {
		diagf("sensor %s: run complete", p.sensorID)
	}
	return err
}
