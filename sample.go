package bmff

import (
	"context"
	"io"
)

// Sample is one resolved media access unit: its timing, size, file offset,
// sync flag, and (once ReadSample has been called) its raw bytes.
type Sample struct {
	StartTime       uint64 // decode timestamp, in the track's timescale
	Duration        uint32
	RenderingOffset int32 // composition offset added to StartTime for display order
	IsSync          bool
	Size            uint32
	Offset          int64
	Bytes           []byte
}

func (t *Track) stszSampleCount() uint32 {
	if len(t.stszData) < 8 {
		return 0
	}
	return be.Uint32(t.stszData[4:8])
}

func (t *Track) fragmentSampleCount() uint32 {
	var n uint32
	for _, fr := range t.fragments {
		n += uint32(len(fr.trunEntries))
	}
	return n
}

// SampleCount returns the total number of samples: stsz.sample_count plus
// the sample counts of every attached fragment run.
func (t *Track) SampleCount() uint32 {
	return t.stszSampleCount() + t.fragmentSampleCount()
}

// SampleOffset resolves sampleID (1-based) to its file offset.
func (t *Track) SampleOffset(sampleID uint32) (int64, error) {
	s, err := t.resolveSample(sampleID)
	if err != nil || s == nil {
		return 0, err
	}
	return s.Offset, nil
}

// ReadSample resolves sampleID and reads its bytes from ra. It returns
// (nil, nil) when the sample does not exist, and (nil, err) when it exists
// in principle but cannot be resolved or read. For a track returned by
// DecodeFragment, a sampleID outside 1..SampleCount is reported as an
// *EntryInTrunNotFoundError rather than (nil, nil).
func (t *Track) ReadSample(ctx context.Context, ra io.ReaderAt, sampleID uint32) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := t.resolveSample(sampleID)
	if err != nil || s == nil {
		return nil, err
	}
	buf := make([]byte, s.Size)
	if _, err := ra.ReadAt(buf, s.Offset); err != nil {
		return nil, err
	}
	s.Bytes = buf
	return s, nil
}

func (t *Track) resolveSample(index uint32) (*Sample, error) {
	base := t.stszSampleCount()
	if index >= 1 && index <= base {
		return resolveNonFragmented(t, index)
	}
	if index > base && index <= base+t.fragmentSampleCount() {
		return resolveFragmented(t, index)
	}
	if t.fromFragmentReader {
		return nil, &EntryInTrunNotFoundError{TrackId: t.TrackId, Type: TypeTrun, Entry: index}
	}
	return nil, nil
}

func sttsLookup(t *Track, index uint32) (dts uint64, duration uint32, ok bool) {
	it := NewSttsIter(t.sttsData)
	var cum uint64
	var sampleNum uint32 = 1
	for {
		e, more := it.Next()
		if !more {
			break
		}
		if index < sampleNum+e.Count {
			return cum + uint64(index-sampleNum)*uint64(e.Duration), e.Duration, true
		}
		cum += uint64(e.Count) * uint64(e.Duration)
		sampleNum += e.Count
	}
	return 0, 0, false
}

func cttsLookup(t *Track, index uint32) int32 {
	if !t.hasCtts {
		return 0
	}
	it := NewCttsIter(t.cttsData, t.cttsVer)
	var sampleNum uint32 = 1
	for {
		e, more := it.Next()
		if !more {
			break
		}
		if index < sampleNum+e.Count {
			return e.Offset
		}
		sampleNum += e.Count
	}
	return 0
}

func stssLookup(t *Track, index uint32) bool {
	if !t.hasStss {
		return true
	}
	it := NewUint32Iter(t.stssData)
	for {
		v, more := it.Next()
		if !more {
			break
		}
		if v == index {
			return true
		}
	}
	return false
}

func stszLookup(t *Track, index uint32) (uint32, bool) {
	if len(t.stszData) < 8 {
		return 0, false
	}
	sampleSize := be.Uint32(t.stszData[0:4])
	count := be.Uint32(t.stszData[4:8])
	if index < 1 || index > count {
		return 0, false
	}
	if sampleSize != 0 {
		return sampleSize, true
	}
	offset := 8 + int(index-1)*4
	if offset+4 > len(t.stszData) {
		return 0, false
	}
	return be.Uint32(t.stszData[offset : offset+4]), true
}

func chunkCount(t *Track) uint32 {
	if t.stcoIs64 {
		it := NewCo64Iter(t.stcoData)
		return it.Count()
	}
	it := NewUint32Iter(t.stcoData)
	return it.Count()
}

func chunkOffsetLookup(t *Track, chunk uint32) (uint64, bool) {
	if t.stcoIs64 {
		it := NewCo64Iter(t.stcoData)
		var i uint32 = 1
		for {
			v, more := it.Next()
			if !more {
				break
			}
			if i == chunk {
				return v, true
			}
			i++
		}
		return 0, false
	}
	it := NewUint32Iter(t.stcoData)
	var i uint32 = 1
	for {
		v, more := it.Next()
		if !more {
			break
		}
		if i == chunk {
			return uint64(v), true
		}
		i++
	}
	return 0, false
}

// resolveChunk finds the chunk containing the 1-based sample index, and
// returns that chunk's file offset plus the count of samples preceding it.
func resolveChunk(t *Track, index uint32) (chunkOffset uint64, samplesBefore uint32, ok bool) {
	var entries []StscEntry
	it := NewStscIter(t.stscData)
	for {
		e, more := it.Next()
		if !more {
			break
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return 0, 0, false
	}

	total := chunkCount(t)
	var cum uint32
	entryIdx := 0
	for chunk := uint32(1); chunk <= total; chunk++ {
		for entryIdx+1 < len(entries) && entries[entryIdx+1].FirstChunk <= chunk {
			entryIdx++
		}
		samplesPerChunk := entries[entryIdx].SamplesPerChunk
		if index > cum && index <= cum+samplesPerChunk {
			offset, found := chunkOffsetLookup(t, chunk)
			if !found {
				return 0, 0, false
			}
			return offset, cum, true
		}
		cum += samplesPerChunk
	}
	return 0, 0, false
}

func resolveNonFragmented(t *Track, index uint32) (*Sample, error) {
	dts, duration, ok := sttsLookup(t, index)
	if !ok {
		return nil, &EntryInStblNotFoundError{TrackId: t.TrackId, Type: TypeStts, Entry: index}
	}
	size, ok := stszLookup(t, index)
	if !ok {
		return nil, &EntryInStblNotFoundError{TrackId: t.TrackId, Type: TypeStsz, Entry: index}
	}
	chunkOffset, samplesBefore, ok := resolveChunk(t, index)
	if !ok {
		return nil, &EntryInStblNotFoundError{TrackId: t.TrackId, Type: TypeStsc, Entry: index}
	}
	var preceding uint64
	for s := samplesBefore + 1; s < index; s++ {
		sz, ok := stszLookup(t, s)
		if !ok {
			return nil, &EntryInStblNotFoundError{TrackId: t.TrackId, Type: TypeStsz, Entry: s}
		}
		preceding += uint64(sz)
	}
	return &Sample{
		StartTime:       dts,
		Duration:        duration,
		RenderingOffset: cttsLookup(t, index),
		IsSync:          stssLookup(t, index),
		Size:            size,
		Offset:          int64(chunkOffset) + int64(preceding),
	}, nil
}

func fragSampleDuration(t *Track, fr *fragmentRun, i uint32) uint32 {
	e := fr.trunEntries[i]
	if fr.trunFlags&TrunSampleDurationPresent != 0 {
		return e.Duration
	}
	if fr.tfhd.HasDefaultDuration {
		return fr.tfhd.DefaultSampleDuration
	}
	return t.TrexDefaultDuration
}

func fragSampleSize(t *Track, fr *fragmentRun, i uint32) uint32 {
	e := fr.trunEntries[i]
	if fr.trunFlags&TrunSampleSizePresent != 0 {
		return e.Size
	}
	if fr.tfhd.HasDefaultSize {
		return fr.tfhd.DefaultSampleSize
	}
	return t.TrexDefaultSize
}

func fragSampleFlags(t *Track, fr *fragmentRun, i uint32) uint32 {
	e := fr.trunEntries[i]
	if fr.trunFlags&TrunSampleFlagsPresent != 0 {
		return e.Flags
	}
	if i == 0 && fr.trunFlags&TrunFirstSampleFlagsPresent != 0 {
		return fr.trunFirstSampleFlags
	}
	if fr.tfhd.HasDefaultFlags {
		return fr.tfhd.DefaultSampleFlags
	}
	return t.TrexDefaultFlags
}

func fragCompositionOffset(fr *fragmentRun, i uint32) int32 {
	if fr.trunFlags&TrunSampleCompositionTimeOffsetPresent != 0 {
		return fr.trunEntries[i].CompositionTimeOffset
	}
	return 0
}

// fragmentBaseOffset resolves the base data offset for fr per ISO precedence:
// default_base_is_moof, then tfhd.base_data_offset, then the end of the
// previous track fragment's data within the same movie fragment.
func fragmentBaseOffset(fr *fragmentRun, prevTrafEnd int64) int64 {
	switch {
	case fr.tfhd.DefaultBaseIsMoof:
		return fr.moofOffset
	case fr.tfhd.HasBaseDataOffset:
		return int64(fr.tfhd.BaseDataOffset)
	case prevTrafEnd >= 0:
		return prevTrafEnd
	default:
		return fr.moofOffset
	}
}

func resolveFragmented(t *Track, index uint32) (*Sample, error) {
	remaining := index - t.stszSampleCount()
	var baseDts uint64
	prevTrafEnd := int64(-1)
	prevMoofOffset := int64(-1)

	for fi := range t.fragments {
		fr := &t.fragments[fi]
		n := uint32(len(fr.trunEntries))
		if fr.moofOffset != prevMoofOffset {
			prevTrafEnd = -1
			prevMoofOffset = fr.moofOffset
		}
		if fr.hasTfdt {
			baseDts = fr.baseMediaDecodeTime
		}
		dataStart := fragmentBaseOffset(fr, prevTrafEnd) + int64(fr.trunDataOffset)

		if remaining > n {
			var dtsSum uint64
			var sizeSum int64
			for i := uint32(0); i < n; i++ {
				dtsSum += uint64(fragSampleDuration(t, fr, i))
				sizeSum += int64(fragSampleSize(t, fr, i))
			}
			baseDts += dtsSum
			prevTrafEnd = dataStart + sizeSum
			remaining -= n
			continue
		}

		idx := remaining - 1
		var dtsAccum uint64
		var sizeAccum int64
		for i := uint32(0); i < idx; i++ {
			dtsAccum += uint64(fragSampleDuration(t, fr, i))
			sizeAccum += int64(fragSampleSize(t, fr, i))
		}
		flags := fragSampleFlags(t, fr, idx)
		return &Sample{
			StartTime:       baseDts + dtsAccum,
			Duration:        fragSampleDuration(t, fr, idx),
			RenderingOffset: fragCompositionOffset(fr, idx),
			IsSync:          flags&0x00010000 == 0,
			Size:            fragSampleSize(t, fr, idx),
			Offset:          dataStart + sizeAccum,
		}, nil
	}
	return nil, &EntryInTrunNotFoundError{TrackId: t.TrackId, Type: TypeTrun, Entry: index}
}
