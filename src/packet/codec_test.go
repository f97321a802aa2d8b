package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeader(t *testing.T) {
	p := New(Telemetry, IDHeartbeat, 5, 2, 0)
	p.Node = 17
	p.Seq = 200
	p.Append(Uint32Entry('u', 0xDEADBEEF))

	buf, err := p.Encode()
	require.NoError(t, err)

	assert.Equal(t, byte(0x80|'h'), buf[0])
	assert.Equal(t, byte(5<<5|17), buf[1])
	assert.Equal(t, byte(2<<5|1), buf[2])
	assert.Equal(t, byte(200), buf[3])
	// 'u' - 64 = 53, length code 3
	assert.Equal(t, byte(3<<6|53), buf[4])
	assert.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE}, buf[5:])
	assert.Equal(t, len(buf), p.Size())
}

func TestDecodeRoundTrip(t *testing.T) {
	p := New(Command, 'c', 3, 1, 0)
	p.Node = 9
	p.Seq = 42
	p.Append(Uint32Entry('A', 0))
	p.Append(Uint32Entry('B', 7))
	p.Append(Uint32Entry('C', 300))
	p.Append(Int32Entry('D', -5))
	p.Append(Float32Entry('f', 1.5))
	p.Append(StringEntry('S', "CFLT"))

	buf, err := p.Encode()
	require.NoError(t, err)

	d, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, p.Kind, d.Kind)
	assert.Equal(t, p.ID, d.ID)
	assert.Equal(t, p.From, d.From)
	assert.Equal(t, p.Node, d.Node)
	assert.Equal(t, p.Dest, d.Dest)
	assert.Equal(t, p.Seq, d.Seq)
	require.Len(t, d.Entries, 6)

	assert.Equal(t, 0, d.Entries[0].Payload.Len())
	assert.Equal(t, uint32(7), d.Entries[1].Payload.Uint32())
	assert.Equal(t, 1, d.Entries[1].Payload.Len())
	assert.Equal(t, uint16(300), d.Entries[2].Payload.Uint16())
	assert.Equal(t, int32(-5), d.Entries[3].Payload.Int32())
	assert.Equal(t, float32(1.5), d.Entries[4].Payload.Float32())
	assert.Equal(t, "CFLT", string(d.Entries[5].Payload.Bytes()))
}

func TestDecodeShort(t *testing.T) {
	_, err := Decode([]byte{0x80, 0x00})
	assert.Equal(t, ErrShortPacket, err)

	// header announces two entries, only one present
	_, err = Decode([]byte{0x80 | 'h', 0x01, 0x02, 0x00, 0x40 | 1, 0x07})
	assert.Equal(t, ErrShortPacket, err)

	// payload truncated
	_, err = Decode([]byte{0x80 | 'h', 0x01, 0x01, 0x00, 0xC0 | 1, 0x07})
	assert.Equal(t, ErrShortPacket, err)
}

func TestEncodeRejectsBadType(t *testing.T) {
	p := New(Telemetry, IDTest, 0, 0, 0)
	p.Append(Uint32Entry('1', 1))

	_, err := p.Encode()
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	p := New(Telemetry, 'x', 0, 0, 0)
	p.Append(Uint32Entry('a', 1))
	p.Append(Uint32Entry('b', 2))
	p.Append(Uint32Entry('a', 3))

	e, ok := p.Find('a', 1)
	require.True(t, ok)
	assert.Equal(t, uint32(3), e.Payload.Uint32())

	_, ok = p.Find('a', 2)
	assert.False(t, ok)
}

func TestAppendFull(t *testing.T) {
	p := New(Telemetry, IDTest, 0, 0, MaxEntries)
	assert.False(t, p.Append(Uint32Entry('I', 1)))
	assert.Len(t, p.Entries, MaxEntries)
}

func TestStringByPacketID(t *testing.T) {
	anomaly := New(Telemetry, IDAnomaly, 0, 0, 0)
	anomaly.Node = 2
	anomaly.Seq = 7
	anomaly.Append(StringEntry('B', "CFLT"))
	assert.Equal(t, "tlm '!' 0.2 -> 0 [1] #7\n  B 67 \"FLT\"", anomaly.String())

	sanity := New(Telemetry, IDSanity, 0, 0, 0)
	sanity.Append(Entry{Type: 'S', Payload: FullPayload(0x503)})
	assert.Equal(t, "tlm '?' 0.0 -> 0 [1] #0\n  S 3 0b101", sanity.String())

	plain := New(Telemetry, 'x', 0, 0, 0)
	plain.Append(Uint32Entry('a', 1))
	assert.Equal(t, "tlm 'x' 0.0 -> 0 [1] #0\n  a 1 1.401298E-45 01", plain.String())
}
