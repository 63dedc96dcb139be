package stream

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type chanWriter struct {
	ch chan string
}

func (w chanWriter) Write(p []byte) (int, error) {
	w.ch <- string(p)
	return len(p), nil
}

func TestRelayForwardsBothStreams(t *testing.T) {
	var out, errOut bytes.Buffer

	err := Relay(
		strings.NewReader("build log line 1\nbuild log line 2\n"),
		strings.NewReader("warning: something\n"),
		&out, &errOut,
	)
	require.NoError(t, err)

	assert.Equal(t, "build log line 1\nbuild log line 2\n", out.String())
	assert.Equal(t, "warning: something\n", errOut.String())
}

func TestRelayDeliversChunksBeforeStreamEnd(t *testing.T) {
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()

	chunks := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Relay(outR, errR, chanWriter{chunks}, io.Discard)
	}()

	_, err := outW.Write([]byte("continue? "))
	require.NoError(t, err)

	select {
	case got := <-chunks:
		assert.Equal(t, "continue? ", got, "partial line must be relayed as written")
	case <-time.After(5 * time.Second):
		t.Fatal("chunk was not relayed until stream end")
	}

	require.NoError(t, outW.Close())
	require.NoError(t, errW.Close())
	require.NoError(t, <-done)
}

func TestRelayPropagatesSinkError(t *testing.T) {
	errR, errW := io.Pipe()
	t.Cleanup(func() { _ = errW.Close() })

	failing := writerFunc(func(p []byte) (int, error) {
		return 0, fmt.Errorf("sink closed")
	})

	done := make(chan error, 1)
	go func() {
		done <- Relay(strings.NewReader("data\n"), errR, failing, io.Discard)
	}()

	require.NoError(t, errW.Close())
	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relaying stdout")
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestTailKeepsLastLines(t *testing.T) {
	tail := NewTail(3)
	for i := 1; i <= 10; i++ {
		_, err := fmt.Fprintf(tail, "line %d\n", i)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"line 8", "line 9", "line 10"}, tail.Lines())
}

func TestTailJoinsSplitLines(t *testing.T) {
	tail := NewTail(5)
	_, err := tail.Write([]byte("error: undefined refer"))
	require.NoError(t, err)
	assert.Equal(t, []string{"error: undefined refer"}, tail.Lines())

	_, err = tail.Write([]byte("ence to `main'\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"error: undefined reference to `main'"}, tail.Lines())
}

func TestTailSharedBetweenStreams(t *testing.T) {
	tail := NewTail(16)
	var out, errOut bytes.Buffer

	err := Relay(
		strings.NewReader("compiling\nlinking\n"),
		strings.NewReader("ld: error\n"),
		io.MultiWriter(&out, tail),
		io.MultiWriter(&errOut, tail),
	)
	require.NoError(t, err)

	lines := tail.Lines()
	assert.Contains(t, lines, "compiling")
	assert.Contains(t, lines, "linking")
	assert.Contains(t, lines, "ld: error")
	assert.Equal(t, "compiling\nlinking\n", out.String())
}

func TestTailConcurrentWriters(t *testing.T) {
	tail := NewTail(8)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				fmt.Fprintf(tail, "writer %d line %d\n", w, i)
			}
		}(w)
	}
	wg.Wait()
	assert.Len(t, tail.Lines(), 8)
}
