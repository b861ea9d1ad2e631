package bmff_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/tetsuo/mp4box"
)

// buildEsds constructs a minimal esds descriptor chain whose
// DecoderSpecificInfo carries the given AudioSpecificConfig bytes.
func buildEsds(aacConfig []byte) []byte {
	dsi := append([]byte{0x05, byte(len(aacConfig))}, aacConfig...)
	dcd := []byte{
		0x04, byte(13 + len(dsi)),
		0x40,             // OTI: MPEG-4 Audio
		0x15,             // streamType/upStream/reserved
		0x00, 0x00, 0x00, // bufferSizeDB
		0x00, 0x01, 0x00, 0x00, // maxBitrate
		0x00, 0x00, 0x80, 0x00, // avgBitrate
	}
	dcd = append(dcd, dsi...)
	es := append([]byte{0x03, byte(3 + len(dcd))}, 0x00, 0x00, 0x00) // ES_ID + flags
	es = append(es, dcd...)
	return es
}

func TestReadEsdsPlainConfig(t *testing.T) {
	c := qt.New(t)
	// AOT=2 (AacLC), freqIndex=4 (44100), channelConfig=2 (stereo):
	// 00010 0100 0010 -> bits: 00010 0100 0010 = 0x12 0x10 padded
	aacConfig := []byte{0b00010_010, 0b0_0010_000}
	info, ok := bmff.ReadEsds(buildEsds(aacConfig))
	c.Assert(ok, qt.IsTrue)
	c.Assert(info.OTI, qt.Equals, byte(0x40))
	c.Assert(info.AvgBitrate, qt.Equals, uint32(0x8000))
	c.Assert(info.AudioObjectType, qt.Equals, uint8(2))
	c.Assert(info.SampleFreqIndex, qt.Equals, uint8(4))
	c.Assert(info.ChannelConfig, qt.Equals, uint8(2))
	c.Assert(bmff.AudioObjectTypeName(info.AudioObjectType), qt.Equals, "AacLC")
	c.Assert(bmff.StandardSampleFreq(info.SampleFreqIndex), qt.Equals, uint32(44100))
}

// bitWriter packs big-endian, MSB-first bits into a byte slice, the inverse
// of the bitReader parseAudioSpecificConfig reads with.
type bitWriter struct {
	bits []bool
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, (v>>uint(i))&1 == 1)
	}
}

func (w *bitWriter) bytes() []byte {
	out := make([]byte, (len(w.bits)+7)/8)
	for i, b := range w.bits {
		if b {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

func TestReadEsdsExtendedConfig(t *testing.T) {
	c := qt.New(t)
	var bw bitWriter
	bw.writeBits(31, 5)     // audioObjectType escape
	bw.writeBits(34-32, 6)  // extension bits: aot = 32 + 2 = 34
	bw.writeBits(15, 4)     // samplingFrequencyIndex escape
	bw.writeBits(96000, 24) // explicit sampling frequency
	bw.writeBits(2, 4)      // channelConfiguration (stereo)

	info, ok := bmff.ReadEsds(buildEsds(bw.bytes()))
	c.Assert(ok, qt.IsTrue)
	c.Assert(info.AudioObjectType, qt.Equals, uint8(34))
	c.Assert(info.SampleFreqIndex, qt.Equals, uint8(15))
	c.Assert(info.SampleFreq, qt.Equals, uint32(96000))
	c.Assert(info.ChannelConfig, qt.Equals, uint8(2))
}

func TestAudioObjectTypeNameUnknown(t *testing.T) {
	c := qt.New(t)
	c.Assert(bmff.AudioObjectTypeName(200), qt.Equals, "")
}

func TestStandardSampleFreqOutOfRange(t *testing.T) {
	c := qt.New(t)
	c.Assert(bmff.StandardSampleFreq(15), qt.Equals, uint32(0))
}
