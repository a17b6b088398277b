package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDispatcherRunsJob(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		close(done)
		return nil
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	d.Close()
	assert.Equal(t, Stats{Sent: 1}, d.Stats())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return timeoutErr{}
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, Stats{Sent: 1, Retried: 2}, d.Stats())
}

func TestDispatcherCountsPermanentFailure(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
	}))
	d.Close()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestDispatcherGivesUpAtDeadline(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 5, RetryBackoff: time.Hour, MaxDuration: 20 * time.Millisecond})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		return timeoutErr{}
	}))
	d.Close()
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestDispatcherPacesCalls(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, PerSecond: 20})
	var calls atomic.Int32
	start := time.Now()
	for range 3 {
		require.NoError(t, d.Enqueue(context.Background(), "send.text", "", func() error {
			calls.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, int32(3), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), "send.text", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Error(t, d.Enqueue(context.Background(), "send.text", "", nil))
}

func TestDispatcherCloseRacesEnqueue(t *testing.T) {
	for range 200 {
		d := NewDispatcher(Options{Workers: 1, QueueSize: 4})
		var wg sync.WaitGroup
		errs := make(chan error, 64)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 8 {
					errs <- d.Enqueue(context.Background(), "send.text", "", func() error { return nil })
				}
			}()
		}
		d.Close()
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil && !errors.Is(err, ErrQueueClosed) && !errors.Is(err, ErrQueueFull) {
				t.Fatalf("unexpected enqueue error: %v", err)
			}
		}
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "a", "", func() error {
		close(started)
		<-block
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "c", "", func() error { return nil }), ErrQueueFull)
	close(block)
	d.Close()
}

func TestBackoff(t *testing.T) {
	d := NewDispatcher(Options{RetryBackoff: time.Second})
	defer d.Close()

	wait, ok := d.backoff(tele.FloodError{RetryAfter: 3}, 1)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, wait)

	wait, ok = d.backoff(timeoutErr{}, 2)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, wait)

	_, ok = d.backoff(errors.New("bad request"), 1)
	assert.False(t, ok)
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{&net.DNSError{Err: "no such host", Name: "api.telegram.org"}, "dns"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{&tele.Error{Code: 400, Description: "Bad Request"}, "http_4xx"},
		{fmt.Errorf("telegram: internal (502)"), "http_5xx"},
		{errors.New("mystery"), "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyError(tc.err), "%v", tc.err)
	}
	assert.Empty(t, classifyError(nil))
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": EOF`)
	msg := sanitizeErrorMessage(err)
	assert.NotContains(t, msg, "123456:AA-bb_CC")
	assert.Contains(t, msg, "bot<redacted>")
}
