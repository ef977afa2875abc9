package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/kakao/asyncseq/pkg/verrors"
)

func TestBench(t *testing.T) {
	for _, mode := range []string{modeSequencer, modeRingQueue} {
		for _, workers := range []int{0, 2} {
			for _, bufferSize := range []int{1, 16, 1024} {
				cfg := benchConfig{
					mode:       mode,
					bufferSize: bufferSize,
					items:      int64(3 * bufferSize),
					batch:      7,
					workers:    workers,
				}
				t.Run(cfg.String(), func(t *testing.T) {
					b, err := newBench(cfg, noopmetric.NewMeterProvider().Meter(appName), zaptest.NewLogger(t))
					require.NoError(t, err)

					res, err := b.run(context.Background())
					require.NoError(t, err)
					k := uint64(cfg.items)
					assert.Equal(t, k*(k+1)/2, res.sum)
					assert.Equal(t, cfg.items, res.items)
				})
			}
		}
	}
}

func TestBenchCancelled(t *testing.T) {
	cfg := benchConfig{
		mode:       modeSequencer,
		bufferSize: 4,
		items:      1 << 30,
		batch:      1,
		workers:    1,
	}
	b, err := newBench(cfg, noopmetric.NewMeterProvider().Meter(appName), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = b.run(ctx)
	require.ErrorIs(t, err, verrors.ErrCancelled)
}

func TestSeqBenchApp(t *testing.T) {
	tcs := []struct {
		args []string
		ok   bool
	}{
		{args: []string{"run", "--buffer-size=16", "--items=1k"}, ok: true},
		{args: []string{"run", "--mode=ringqueue", "--buffer-size=1Ki", "--items=10k", "--batch=100", "--executor-workers=2"}, ok: true},
		{args: []string{"run", "--mode=unknown"}, ok: false},
		{args: []string{"run", "--buffer-size=0"}, ok: false},
		{args: []string{"run", "--items=lots"}, ok: false},
		{args: []string{"run", "--batch=0"}, ok: false},
		{args: []string{"run", "--executor-workers=-1"}, ok: false},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(fmt.Sprint(tc.args), func(t *testing.T) {
			var out bytes.Buffer
			app := newSeqBenchApp()
			app.Writer = &out
			app.ErrWriter = &out
			err := app.Run(append([]string{appName}, tc.args...))
			if !tc.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), "items in")
		})
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("os/signal.loop"),
	)
}
