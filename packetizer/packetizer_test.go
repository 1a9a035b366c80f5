package packetizer

import (
	"bytes"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	writes [][]byte
}

func (r *recorder) SubmitWrite(chunk []byte) error {
	r.mu.Lock()
	r.writes = append(r.writes, append([]byte(nil), chunk...))
	r.mu.Unlock()
	return nil
}

func payload(n int) []byte {
	p := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(p)
	return p
}

func TestSplitCoversMessageExactly(t *testing.T) {
	for _, tc := range []struct {
		n, max int
	}{
		{1401, 1400}, {2800, 1400}, {5000, 1400}, {10, 3}, {7, 1}, {65536, 1000},
	} {
		msg := payload(tc.n)
		var r recorder
		n, err := New(tc.max, true).Send(&r, msg)
		require.NoError(t, err)

		want := (tc.n + tc.max - 1) / tc.max
		assert.Equal(t, want, n, "n=%d max=%d", tc.n, tc.max)
		require.Len(t, r.writes, want)
		for i, w := range r.writes {
			assert.LessOrEqual(t, len(w), tc.max)
			if i < len(r.writes)-1 {
				assert.Len(t, w, tc.max)
			}
		}
		assert.True(t, bytes.Equal(msg, bytes.Join(r.writes, nil)))
	}
}

func TestSingleWriteWhenSmallOrSplitDisabled(t *testing.T) {
	for _, tc := range []struct {
		n, max int
		split  bool
	}{
		{1400, 1400, true}, {1, 1400, true}, {5000, 1400, false}, {5000, 0, true},
	} {
		msg := payload(tc.n)
		var r recorder
		n, err := New(tc.max, tc.split).Send(&r, msg)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Len(t, r.writes, 1)
		assert.Equal(t, msg, r.writes[0])
	}
}

func TestEmptyMessageProducesNoWrites(t *testing.T) {
	var r recorder
	n, err := New(10, true).Send(&r, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, r.writes)
	assert.Zero(t, Count(0, 10, true))
}

func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	p := New(4, true)
	var r recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			_, _ = p.Send(&r, bytes.Repeat([]byte{b}, 40))
		}(byte('a' + i))
	}
	wg.Wait()

	require.Len(t, r.writes, 200)
	for i := 0; i < len(r.writes); i += 10 {
		first := r.writes[i][0]
		for _, w := range r.writes[i : i+10] {
			assert.Equal(t, bytes.Repeat([]byte{first}, 4), w)
		}
	}
}

func TestSubmitErrorStopsRemainingChunks(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	w := WriterFunc(func([]byte) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	n, err := New(2, true).Send(w, payload(10))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, calls)
}

func TestSendChunks(t *testing.T) {
	var r recorder
	n, err := New(1, true).SendChunks(&r, [][]byte{[]byte("abc"), []byte("de")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("abc"), r.writes[0])
}
