package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadFrameRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteFrame(Frame{SubCommand: 0x11, Payload: EncodeUint32(0xDEADBEEF)}))

	r := NewReader(&buf)
	f, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(0x11), f.SubCommand)
	assert.Equal(t, uint32(0xDEADBEEF), DecodeUint32(f.Payload))
}

func TestAckNackRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteAck(0x05))
	require.NoError(t, w.WriteNack(0x06, 3))

	r := NewReader(&buf)
	ack, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, Ack, ack.SubCommand)
	assert.Equal(t, []byte{0x05, 0}, ack.Payload)

	nack, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, Nack, nack.SubCommand)
	assert.Equal(t, []byte{0x06, 3}, nack.Payload)
}

func TestMissingEndIsProtocolError(t *testing.T) {
	buf := bytes.NewBuffer([]byte{StartSysex, SchedulerData, 0xFF, 0x01, 0x02, 0x03})
	r := NewReader(buf)
	_, err := r.ReadFrame()
	assert.Error(t, err)
}

func TestOddNibbleCountIsProtocolError(t *testing.T) {
	buf := bytes.NewBuffer([]byte{StartSysex, SchedulerData, 0xFF, 0x01, 0x02, 0x03, 0x04, EndSysex})
	r := NewReader(buf)
	_, err := r.ReadFrame()
	assert.Error(t, err)
}

func TestWrongMarkerByteIsProtocolError(t *testing.T) {
	buf := bytes.NewBuffer([]byte{StartSysex, 0x00, 0xFF, 0x01, EndSysex})
	r := NewReader(buf)
	_, err := r.ReadFrame()
	assert.Error(t, err)
}
