package gatehousehttp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogSinkWritesAndFlushes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")

	sink, err := NewLogSink(path, "access")
	require.NoError(t, err)

	sink.Write("first line")
	sink.Write("second line")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sink.Close(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "first line\n")
	require.Contains(t, string(data), "second line\n")
}

func TestErrorRecordFormat(t *testing.T) {
	when := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	rec := ErrorRecord(when, "something went wrong")
	require.Equal(t, "[2026-07-31 09:30:00]: something went wrong", rec)
}
