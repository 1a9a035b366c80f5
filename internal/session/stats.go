// File: internal/session/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import "code.hybscloud.com/atomix"

type stats struct {
	bytesIn     atomix.Uint64
	bytesOut    atomix.Uint64
	reads       atomix.Uint64
	writes      atomix.Uint64
	retries     atomix.Uint64
	writeErrors atomix.Uint64
}

// Stats returns a snapshot of the session counters. The counters survive
// Close and reconnects; send_pending covers the live connection only.
func (s *Session) Stats() map[string]uint64 {
	s.ioMu.Lock()
	out := s.out
	s.ioMu.Unlock()
	var pending uint64
	if out != nil {
		pending = uint64(out.Pending())
	}
	return map[string]uint64{
		"send_pending": pending,
		"bytes_in":     s.stats.bytesIn.Load(),
		"bytes_out":    s.stats.bytesOut.Load(),
		"reads":        s.stats.reads.Load(),
		"writes":       s.stats.writes.Load(),
		"retries":      s.stats.retries.Load(),
		"write_errors": s.stats.writeErrors.Load(),
	}
}

// PublishStats pushes the counters into the metrics sink, if one is set.
func (s *Session) PublishStats() {
	if s.deps.Metrics == nil {
		return
	}
	for k, v := range s.Stats() {
		s.deps.Metrics.Set(s.metricKey(k), v)
	}
}
