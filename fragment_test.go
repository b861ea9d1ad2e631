package bmff_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/tetsuo/mp4box"
)

// buildInitSegment builds an ftyp/moov init segment for a single audio
// track with empty sample tables and trex defaults, suitable for
// DecodeFragment.
func buildInitSegment() []byte {
	raw := make([]byte, 4096)
	w := bmff.NewWriter(raw)

	w.WriteFtyp([4]byte{'i', 's', 'o', '5'}, 0, [][4]byte{{'i', 's', 'o', '5'}, {'d', 'a', 's', 'h'}})

	w.StartBox(bmff.TypeMoov)
	w.WriteMvhd(48000, 0, 2)
	w.StartBox(bmff.TypeTrak)
	w.WriteTkhd(0, 1, 0, 0, 0)
	w.StartBox(bmff.TypeMdia)
	w.WriteMdhd(48000, 0, 0)
	w.WriteHdlr([4]byte{'s', 'o', 'u', 'n'}, "SoundHandler")
	w.StartBox(bmff.TypeMinf)
	w.StartBox(bmff.TypeStbl)

	w.StartFullBox(bmff.TypeStsd, 0, 0)
	w.Write([]byte{0, 0, 0, 1})
	w.StartBox(bmff.TypeMp4a)
	w.WriteAudioSampleEntry(1, 2, 16, 48000<<16)
	w.EndBox()
	w.EndBox() // stsd

	w.WriteStts(nil)
	w.WriteStsc(nil)
	w.WriteStsz(0, nil)
	w.WriteStco(nil)

	w.EndBox() // stbl
	w.EndBox() // minf
	w.EndBox() // mdia
	w.EndBox() // trak

	w.StartBox(bmff.TypeMvex)
	w.WriteTrex(1, 1, 1024, 0, 0)
	w.EndBox() // mvex

	w.EndBox() // moov

	return raw[:w.Len()]
}

// buildSegment builds a single moof/mdat media segment for track 1 with
// two samples of explicit duration and size, default_base_is_moof set.
func buildSegment() []byte {
	raw := make([]byte, 4096)
	w := bmff.NewWriter(raw)

	w.StartBox(bmff.TypeMoof)
	w.WriteMfhd(1)
	w.StartBox(bmff.TypeTraf)
	flags := uint32(bmff.TfhdDefaultBaseIsMoof)
	w.WriteTfhd(flags, bmff.TfhdInfo{TrackId: 1})
	w.WriteTfdt(5000)
	trunFlags := uint32(bmff.TrunDataOffsetPresent | bmff.TrunSampleDurationPresent | bmff.TrunSampleSizePresent)
	trunBoxStart := w.Len()
	w.WriteTrun(trunFlags, 0, []bmff.TrunEntry{
		{Duration: 1024, Size: 100},
		{Duration: 1024, Size: 120},
	})
	w.EndBox() // traf
	w.EndBox() // moof

	moofEnd := w.Len()
	w.StartBox(bmff.TypeMdat)
	w.Write(bytes.Repeat([]byte{0x11}, 100))
	w.Write(bytes.Repeat([]byte{0x22}, 120))
	w.EndBox()

	// Patch trun's data_offset now that the mdat payload position is known:
	// default_base_is_moof means offsets are relative to the start of moof (0).
	dataStart := moofEnd + 8
	trunDataOffsetPos := trunBoxStart + 16 // header(8) + vf(4) + sample_count(4)
	binary.BigEndian.PutUint32(raw[trunDataOffsetPos:], uint32(dataStart))

	return raw[:w.Len()]
}

func TestDecodeFragmentSampleResolution(t *testing.T) {
	c := qt.New(t)
	initData := buildInitSegment()
	init, err := bmff.Decode(bytes.NewReader(initData), int64(len(initData)))
	c.Assert(err, qt.IsNil)

	segData := buildSegment()
	frag, err := bmff.DecodeFragment(init, bytes.NewReader(segData), int64(len(segData)))
	c.Assert(err, qt.IsNil)
	c.Assert(frag.IsFragmented(), qt.IsTrue)

	tr := frag.Track(1)
	c.Assert(tr, qt.Not(qt.IsNil))
	c.Assert(tr.SampleCount(), qt.Equals, uint32(2))

	src := bytes.NewReader(segData)
	s1, err := tr.ReadSample(context.Background(), src, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(s1.Duration, qt.Equals, uint32(1024))
	c.Assert(s1.Size, qt.Equals, uint32(100))
	c.Assert(s1.StartTime, qt.Equals, uint64(5000))
	c.Assert(s1.Bytes, qt.DeepEquals, bytes.Repeat([]byte{0x11}, 100))

	s2, err := tr.ReadSample(context.Background(), src, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(s2.Size, qt.Equals, uint32(120))
	c.Assert(s2.StartTime, qt.Equals, uint64(6024))

	_, err = tr.ReadSample(context.Background(), src, 3)
	c.Assert(err, qt.ErrorAs, new(*bmff.EntryInTrunNotFoundError))
}

func TestDecodeFragmentTfdtUnsupportedVersion(t *testing.T) {
	c := qt.New(t)
	initData := buildInitSegment()
	init, err := bmff.Decode(bytes.NewReader(initData), int64(len(initData)))
	c.Assert(err, qt.IsNil)

	segData := buildSegment()
	idx := bytes.Index(segData, []byte("tfdt"))
	c.Assert(idx, qt.Not(qt.Equals), -1)
	segData[idx+4] = 2 // version byte of tfdt's version/flags word

	_, err = bmff.DecodeFragment(init, bytes.NewReader(segData), int64(len(segData)))
	c.Assert(err, qt.ErrorAs, new(*bmff.UnsupportedBoxVersionError))
}
