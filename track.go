package bmff

// Bitrate returns the track's bitrate in bits per second: the esds average
// bitrate when present (audio), otherwise total sample bytes divided by the
// track duration in seconds.
func (t *Track) Bitrate() uint64 {
	if e, ok := t.SampleEntry.(Mp4aSampleEntry); ok && e.HasEsds && e.Esds.AvgBitrate != 0 {
		return uint64(e.Esds.AvgBitrate)
	}
	seconds := t.durationSeconds()
	if seconds == 0 {
		return 0
	}
	return uint64(float64(t.totalSampleBytes()) / seconds * 8)
}

func (t *Track) durationSeconds() float64 {
	if t.Timescale == 0 {
		return 0
	}
	return float64(t.Duration) / float64(t.Timescale)
}

func (t *Track) totalSampleBytes() uint64 {
	var total uint64
	count := t.stszSampleCount()
	for i := uint32(1); i <= count; i++ {
		if sz, ok := stszLookup(t, i); ok {
			total += uint64(sz)
		}
	}
	for _, fr := range t.fragments {
		for i := uint32(0); i < uint32(len(fr.trunEntries)); i++ {
			total += uint64(fragSampleSize(t, &fr, i))
		}
	}
	return total
}

// FrameRate returns sample_count / duration_in_seconds, 0 when duration is 0.
func (t *Track) FrameRate() float64 {
	seconds := t.durationSeconds()
	if seconds == 0 {
		return 0
	}
	return float64(t.SampleCount()) / seconds
}

// AvcProfile returns the AVC profile name, or "" when the track's sample
// entry is not avc1 or carries no avcC.
func (t *Track) AvcProfile() string {
	if e, ok := t.SampleEntry.(Avc1SampleEntry); ok {
		return e.Profile()
	}
	return ""
}

// AudioObjectType returns the MPEG-4 audio object type name for an mp4a
// track, or "" otherwise.
func (t *Track) AudioObjectType() string {
	if e, ok := t.SampleEntry.(Mp4aSampleEntry); ok && e.HasEsds {
		return AudioObjectTypeName(e.Esds.AudioObjectType)
	}
	return ""
}

// SampleFreqIndex returns the esds sampling-frequency index for an mp4a track.
func (t *Track) SampleFreqIndex() (uint8, bool) {
	if e, ok := t.SampleEntry.(Mp4aSampleEntry); ok && e.HasEsds {
		return e.Esds.SampleFreqIndex, true
	}
	return 0, false
}

// SampleFreq returns the track's sampling frequency in Hz: the explicit
// 24-bit rate when SampleFreqIndex is the escape value 15, otherwise the
// value from the fixed MPEG-4 table.
func (t *Track) SampleFreq() uint32 {
	e, ok := t.SampleEntry.(Mp4aSampleEntry)
	if !ok || !e.HasEsds {
		return 0
	}
	if e.Esds.SampleFreqIndex == 15 {
		return e.Esds.SampleFreq
	}
	return StandardSampleFreq(e.Esds.SampleFreqIndex)
}

// ChannelConfig returns the esds channel configuration name for an mp4a track.
func (t *Track) ChannelConfig() string {
	if e, ok := t.SampleEntry.(Mp4aSampleEntry); ok && e.HasEsds {
		return e.ChannelConfigName()
	}
	return ""
}

// FragmentSequenceNumbers returns the mfhd sequence_number of each fragment
// run attached to the track, in attachment order. Used to detect gaps or
// reordering across a sequence of media segments.
func (t *Track) FragmentSequenceNumbers() []uint32 {
	out := make([]uint32, len(t.fragments))
	for i, fr := range t.fragments {
		out[i] = fr.sequenceNumber
	}
	return out
}

// Codec returns a short codec identifier derived from the track's sample entry.
func (t *Track) Codec() string {
	switch t.SampleEntry.(type) {
	case Avc1SampleEntry:
		return "H.264"
	case Hev1SampleEntry:
		return "H.265"
	case Vp09SampleEntry:
		return "VP9"
	case Mp4aSampleEntry:
		return "AAC"
	case Tx3gSampleEntry:
		return "TX3G"
	default:
		return ""
	}
}
