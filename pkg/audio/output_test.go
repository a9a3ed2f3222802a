package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type nopCloser struct {
	bytes.Buffer
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func TestWriterOutputWritesLittleEndianPCM(t *testing.T) {
	buf := &nopCloser{}
	out := NewWriterOutput(buf)

	require.NoError(t, out.WritePCM([]int16{1, -1, 256}))
	require.Equal(t, []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x01}, buf.Bytes())

	require.NoError(t, out.Close())
	require.True(t, buf.closed)
}

func TestDiscardAcceptsEverything(t *testing.T) {
	require.NoError(t, Discard.WritePCM([]int16{1, 2, 3}))
	require.NoError(t, Discard.Close())
}
