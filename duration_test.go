package gatehouse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshalsMillisecondNumber(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte("300000"), &d))
	require.Equal(t, 300*time.Second, time.Duration(d))
}

func TestDurationUnmarshalsGoDurationString(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"5s"`), &d))
	require.Equal(t, 5*time.Second, time.Duration(d))
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration(2500 * time.Millisecond)
	b, err := json.Marshal(d)
	require.NoError(t, err)

	var back Duration
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, d, back)
}
