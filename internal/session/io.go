// File: internal/session/io.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Read loop and outbound write queue of a connected session.

package session

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"github.com/eapache/queue"

	"github.com/momentics/hioload-net/api"
)

const outboundDepth = 256

// outbound carries chunks from senders to one writer goroutine. Chunks go
// through the ring while it has room; once it fills they wait in overflow,
// and every later chunk follows them there until the writer has drained it.
// Ring entries are therefore always older than overflow entries.
type outbound struct {
	s     *Session
	sock  api.Socket
	epoch uint32

	mu       sync.Mutex // serializes producers; guards overflow
	ring     lfq.SPSC[[]byte]
	overflow *queue.Queue
	queued   atomix.Uint64
	written  atomix.Uint64
	wake     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newOutbound(s *Session, sock api.Socket, epoch uint32) *outbound {
	o := &outbound{
		s:        s,
		sock:     sock,
		epoch:    epoch,
		overflow: queue.New(),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	o.ring.Init(outboundDepth)
	return o
}

func (o *outbound) start() { go o.run() }

func (o *outbound) stop() {
	o.once.Do(func() { close(o.done) })
}

// SubmitWrite queues chunk and returns at once. It never waits for the
// writer, so it is safe on executor workers.
func (o *outbound) SubmitWrite(chunk []byte) error {
	select {
	case <-o.done:
		return api.ErrSocketClosed
	default:
	}
	o.mu.Lock()
	if o.overflow.Length() > 0 {
		o.overflow.Add(chunk)
	} else if err := o.ring.Enqueue(&chunk); err != nil {
		if !iox.IsWouldBlock(err) {
			o.mu.Unlock()
			return err
		}
		o.overflow.Add(chunk)
	}
	o.queued.Add(1)
	o.mu.Unlock()
	o.signal()
	return nil
}

// Pending returns how many chunks are queued but not yet written.
func (o *outbound) Pending() int {
	q, w := o.queued.Load(), o.written.Load()
	if w >= q {
		return 0
	}
	return int(q - w)
}

// drain waits until every queued chunk has been written.
func (o *outbound) drain(ctx context.Context) error {
	var bo iox.Backoff
	for o.written.Load() < o.queued.Load() {
		select {
		case <-o.done:
			return api.ErrSocketClosed
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		bo.Wait()
	}
	return nil
}

func (o *outbound) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// next returns the oldest queued chunk.
func (o *outbound) next() ([]byte, bool) {
	if chunk, err := o.ring.Dequeue(); err == nil {
		return chunk, true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if chunk, err := o.ring.Dequeue(); err == nil {
		return chunk, true
	}
	if o.overflow.Length() == 0 {
		return nil, false
	}
	return o.overflow.Remove().([]byte), true
}

func (o *outbound) run() {
	for {
		chunk, ok := o.next()
		if !ok {
			select {
			case <-o.wake:
				continue
			case <-o.done:
				return
			}
		}
		select {
		case <-o.done:
			return
		default:
		}
		n, werr := o.sock.Write(chunk)
		o.written.Add(1)
		o.s.onWritten(o.epoch, n, werr)
	}
}

// onWritten reports one write completion. Failed writes leave the session up.
func (s *Session) onWritten(epoch uint32, n int, err error) {
	if err != nil {
		s.stats.writeErrors.Add(1)
	} else {
		s.stats.writes.Add(1)
		s.stats.bytesOut.Add(uint64(n))
	}
	s.complete(epoch, func() {
		if err != nil {
			s.recordError(err)
			s.log.Debug().Err(err).Int("written", n).Msg("write failed")
		}
		s.handlerLocked().OnMessageSent(n, err)
	})
}

// failWrite reports a chunk that never reached the writer.
func (s *Session) failWrite(err error) {
	s.recordError(err)
	s.log.Debug().Err(err).Msg("write not submitted")
	s.handlerLocked().OnMessageSent(0, err)
}

// armRead issues exactly one read. The next one is issued only after the
// received-message callback of this one has returned.
func (s *Session) armRead(epoch uint32, sock api.Socket) {
	s.ioMu.Lock()
	bp := s.readPool
	limit := s.cfg.MaxReceiveBuffer
	s.ioMu.Unlock()

	go func() {
		buf := bp.GetBuffer()
		if limit > len(buf) {
			limit = len(buf)
		}
		n, err := sock.Read(buf[:limit])
		var msg api.Message
		if n > 0 {
			msg = api.Message{Size: n, Data: append([]byte(nil), buf[:n]...)}
		}
		bp.PutBuffer(buf)
		s.reactor.Post(func() { s.onRead(epoch, sock, msg, err) })
	}()
}

func (s *Session) onRead(epoch uint32, sock api.Socket, msg api.Message, err error) {
	if !s.current(epoch) {
		return
	}
	if msg.Size > 0 {
		s.stats.reads.Add(1)
		s.stats.bytesIn.Add(uint64(msg.Size))
		s.handlerLocked().OnMessageReceived(msg)
	}
	if err == nil {
		if s.current(epoch) {
			s.armRead(epoch, sock)
		}
		return
	}

	s.ioMu.Lock()
	if s.epoch != epoch {
		s.ioMu.Unlock()
		return
	}
	out := s.out
	s.sock, s.out = nil, nil
	s.setStateLocked(api.SessionClosed)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	h := s.handler
	s.ioMu.Unlock()

	if out != nil {
		out.stop()
	}
	_ = sock.Close()
	rec := s.recordError(err)
	s.log.Info().Err(err).Msg("read loop ended")
	h.OnError(rec.Code, err)
}
