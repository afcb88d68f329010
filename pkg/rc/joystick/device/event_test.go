package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent([]byte{1, 0, 0, 0, 0xff, 0x7f, jsEventAxis | jsEventInit, 3})
	require.NoError(t, err)
	axis, ok := ev.(AxisEvent)
	require.True(t, ok)
	require.True(t, axis.IsInit())
	require.Equal(t, 3, axis.Index())
	require.Equal(t, AxisMax, axis.Value())

	ev, err = decodeEvent([]byte{1, 0, 0, 0, 0x01, 0x80, jsEventAxis, 0})
	require.NoError(t, err)
	require.Equal(t, -AxisMax, ev.(AxisEvent).Value())
	require.False(t, ev.IsInit())

	ev, err = decodeEvent([]byte{0, 0, 0, 0, 1, 0, jsEventButton, 2})
	require.NoError(t, err)
	btn, ok := ev.(ButtonEvent)
	require.True(t, ok)
	require.True(t, btn.Pressed())
	require.Equal(t, 2, btn.Index())

	_, err = decodeEvent([]byte{0, 1})
	require.Error(t, err)
}

func TestDecodeUnknownEvent(t *testing.T) {
	ev, err := decodeEvent([]byte{0, 0, 0, 0, 0, 0, 0x04, 5})
	require.NoError(t, err)
	require.Equal(t, 5, ev.Index())
	_, isAxis := ev.(AxisEvent)
	_, isButton := ev.(ButtonEvent)
	require.False(t, isAxis)
	require.False(t, isButton)
}
