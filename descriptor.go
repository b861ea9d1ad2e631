package bmff

// EsdsInfo holds the fields of interest decoded from an esds box's descriptor chain.
type EsdsInfo struct {
	OTI             byte
	MaxBitrate      uint32
	AvgBitrate      uint32
	AudioObjectType uint8
	SampleFreqIndex uint8
	SampleFreq      uint32 // only meaningful when SampleFreqIndex == 15
	ChannelConfig   uint8
}

// ReadEsds parses an esds box's descriptor chain into an EsdsInfo, including
// the AudioSpecificConfig nested in DecoderSpecificInfo (tag 0x05), with
// support for the extended audio-object-type escape (31) and the extended
// sample-frequency-index escape (15, followed by an explicit 24-bit rate).
func ReadEsds(data []byte) (EsdsInfo, bool) {
	var info EsdsInfo
	if len(data) < 2 || data[0] != 0x03 {
		return info, false
	}
	ptr, end := 1, len(data)
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr+3 > end {
		return info, false
	}
	flags := data[ptr+2]
	ptr += 3
	if flags&0x80 != 0 {
		ptr += 2
	}
	if flags&0x40 != 0 {
		if ptr >= end {
			return info, false
		}
		urlLen := int(data[ptr])
		ptr += 1 + urlLen
	}
	if flags&0x20 != 0 {
		ptr += 2
	}
	if ptr >= end || data[ptr] != 0x04 {
		return info, false
	}
	ptr++
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr+13 > end {
		return info, false
	}
	info.OTI = data[ptr]
	info.MaxBitrate = be.Uint32(data[ptr+5 : ptr+9])
	info.AvgBitrate = be.Uint32(data[ptr+9 : ptr+13])
	ptr += 13
	if ptr >= end || data[ptr] != 0x05 {
		return info, true
	}
	ptr++
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr >= end {
		return info, true
	}
	aot, freqIdx, freq, chanCfg, ok := parseAudioSpecificConfig(data[ptr:end])
	if ok {
		info.AudioObjectType = aot
		info.SampleFreqIndex = freqIdx
		info.SampleFreq = freq
		info.ChannelConfig = chanCfg
	}
	return info, true
}

// bitReader reads big-endian bits MSB-first from a byte slice.
type bitReader struct {
	data []byte
	pos  int // bit position
}

func (r *bitReader) readBits(n int) (uint32, bool) {
	var v uint32
	for range n {
		byteIdx := r.pos / 8
		if byteIdx >= len(r.data) {
			return 0, false
		}
		bitIdx := 7 - uint(r.pos%8)
		bit := (r.data[byteIdx] >> bitIdx) & 1
		v = v<<1 | uint32(bit)
		r.pos++
	}
	return v, true
}

// parseAudioSpecificConfig decodes the leading fields of an MPEG-4 AudioSpecificConfig:
// audioObjectType (5 bits, escape value 31 reads a further 6 bits and adds 32),
// samplingFrequencyIndex (4 bits, escape value 15 reads an explicit 24-bit rate),
// channelConfiguration (4 bits).
func parseAudioSpecificConfig(data []byte) (aot uint8, freqIndex uint8, sampleFreq uint32, channelConfig uint8, ok bool) {
	br := &bitReader{data: data}
	v, ok1 := br.readBits(5)
	if !ok1 {
		return 0, 0, 0, 0, false
	}
	aot = uint8(v)
	if aot == 31 {
		ext, ok2 := br.readBits(6)
		if !ok2 {
			return 0, 0, 0, 0, false
		}
		aot = uint8(32 + ext)
	}
	fi, ok3 := br.readBits(4)
	if !ok3 {
		return 0, 0, 0, 0, false
	}
	freqIndex = uint8(fi)
	if freqIndex == 15 {
		freq, ok4 := br.readBits(24)
		if !ok4 {
			return 0, 0, 0, 0, false
		}
		sampleFreq = freq
	}
	cc, ok5 := br.readBits(4)
	if !ok5 {
		return 0, 0, 0, 0, false
	}
	channelConfig = uint8(cc)
	return aot, freqIndex, sampleFreq, channelConfig, true
}

// AudioObjectTypeName returns the MPEG-4 audio object type name for aot.
// Unknown values return an empty string.
func AudioObjectTypeName(aot uint8) string {
	switch aot {
	case 1:
		return "AacMain"
	case 2:
		return "AacLC"
	case 3:
		return "AacSSR"
	case 4:
		return "AacLTP"
	case 5:
		return "Sbr"
	case 6:
		return "AacScalable"
	case 17:
		return "ErAacLC"
	case 23:
		return "ErAacLD"
	case 29:
		return "Ps"
	case 36:
		return "AudioLosslessCoding"
	case 39:
		return "ErAacELD"
	default:
		return ""
	}
}

// StandardSampleFreq maps the fixed MPEG-4 sampling-frequency-index table (0-12) to Hz.
// Index 13/14 are reserved, index 15 signals an explicit rate carried separately.
func StandardSampleFreq(index uint8) uint32 {
	table := [13]uint32{
		96000, 88200, 64000, 48000, 44100, 32000,
		24000, 22050, 16000, 12000, 11025, 8000, 7350,
	}
	if int(index) < len(table) {
		return table[index]
	}
	return 0
}

// skipDescriptorLength skips the variable-length descriptor length field.
// Returns the new position, or -1 on error.
func skipDescriptorLength(data []byte, ptr, end int) int {
	for ptr < end {
		b := data[ptr]
		ptr++
		if b&0x80 == 0 {
			return ptr
		}
	}
	return -1
}
