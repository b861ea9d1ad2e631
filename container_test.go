package bmff_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/tetsuo/mp4box"
)

// buildMinimalMovie assembles a tiny non-fragmented movie with a single
// video track: two samples of 10 and 12 bytes, in one chunk, sample 1 a
// sync point. The stco chunk offset is backpatched once the mdat position
// is known.
func buildMinimalMovie() []byte {
	return buildMovie(nil)
}

// buildMovie is buildMinimalMovie with an optional extra moov child
// (e.g. a udta tree) written just before moov closes.
func buildMovie(writeExtraMoovChild func(w *bmff.Writer)) []byte {
	raw := make([]byte, 4096)
	w := bmff.NewWriter(raw)

	w.WriteFtyp([4]byte{'i', 's', 'o', 'm'}, 0, [][4]byte{{'i', 's', 'o', 'm'}, {'m', 'p', '4', '1'}})

	w.StartBox(bmff.TypeMoov)
	w.WriteMvhd(1000, 2000, 2)
	w.StartBox(bmff.TypeTrak)
	w.WriteTkhd(0, 1, 2000, 640<<16, 480<<16)
	w.StartBox(bmff.TypeMdia)
	w.WriteMdhd(1000, 2000, 0)
	w.WriteHdlr([4]byte{'v', 'i', 'd', 'e'}, "VideoHandler")
	w.StartBox(bmff.TypeMinf)
	w.StartBox(bmff.TypeStbl)

	w.StartFullBox(bmff.TypeStsd, 0, 0)
	w.Write([]byte{0, 0, 0, 1}) // entry_count
	w.StartBox(bmff.TypeAvc1)
	w.WriteVisualSampleEntry(1, 640, 480, 1, 24, "")
	w.StartBox(bmff.TypeAvcC)
	w.Write([]byte{1, 100, 0, 31})
	w.EndBox()
	w.EndBox()
	w.EndBox() // stsd

	w.WriteStts([]bmff.SttsEntry{{Count: 2, Duration: 1000}})
	w.WriteStsc([]bmff.StscEntry{{FirstChunk: 1, SamplesPerChunk: 2, SampleDescriptionId: 1}})
	w.WriteStsz(0, []uint32{10, 12})
	w.WriteStss([]uint32{1})

	stcoFieldPos := w.Len() + 16 // box header(8) + vf(4) + entry_count(4)
	w.WriteStco([]uint32{0})     // chunk offset patched below

	w.EndBox() // stbl
	w.EndBox() // minf
	w.EndBox() // mdia
	w.EndBox() // trak
	if writeExtraMoovChild != nil {
		writeExtraMoovChild(&w)
	}
	w.EndBox() // moov

	mdatStart := w.Len()
	w.StartBox(bmff.TypeMdat)
	w.Write(bytes.Repeat([]byte{0xAA}, 10))
	w.Write(bytes.Repeat([]byte{0xBB}, 12))
	w.EndBox()

	binary.BigEndian.PutUint32(raw[stcoFieldPos:], uint32(mdatStart+8))

	return raw[:w.Len()]
}

func TestDecodeMinimalMovie(t *testing.T) {
	c := qt.New(t)
	data := buildMinimalMovie()
	src := bytes.NewReader(data)

	f, err := bmff.Decode(src, int64(len(data)))
	c.Assert(err, qt.IsNil)
	c.Assert(f.MajorBrand().String(), qt.Equals, "isom")
	c.Assert(f.IsFragmented(), qt.IsFalse)
	c.Assert(f.TimeScale(), qt.Equals, uint32(1000))

	tr := f.Track(1)
	c.Assert(tr, qt.Not(qt.IsNil))
	c.Assert(tr.Type(), qt.Equals, bmff.MediaVideo)
	c.Assert(tr.SampleCount(), qt.Equals, uint32(2))
	c.Assert(tr.Codec(), qt.Equals, "H.264")
	c.Assert(tr.AvcProfile(), qt.Equals, "High")

	s1, err := tr.ReadSample(context.Background(), src, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(s1.Size, qt.Equals, uint32(10))
	c.Assert(s1.IsSync, qt.IsTrue)
	c.Assert(s1.Bytes, qt.DeepEquals, bytes.Repeat([]byte{0xAA}, 10))

	s2, err := tr.ReadSample(context.Background(), src, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(s2.Size, qt.Equals, uint32(12))
	c.Assert(s2.IsSync, qt.IsFalse)
	c.Assert(s2.StartTime, qt.Equals, uint64(1000))

	s3, err := tr.ReadSample(context.Background(), src, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(s3, qt.IsNil)
}

func TestDecodeMissingFtyp(t *testing.T) {
	c := qt.New(t)
	w := bmff.NewWriter(make([]byte, 64))
	w.StartBox(bmff.TypeFree)
	w.EndBox()
	data := w.Bytes()

	_, err := bmff.Decode(bytes.NewReader(data), int64(len(data)))
	c.Assert(err, qt.ErrorAs, new(*bmff.BoxNotFoundError))
}

func TestDecodeStszCraftedEntryCount(t *testing.T) {
	c := qt.New(t)
	data := buildMinimalMovie()

	idx := bytes.Index(data, []byte("stsz"))
	c.Assert(idx, qt.Not(qt.Equals), -1)
	// fourcc(4) + version/flags(4) + sample_size(4) puts us at entry_count.
	countPos := idx + 12
	binary.BigEndian.PutUint32(data[countPos:], 0xFFFFFFF0)

	_, err := bmff.Decode(bytes.NewReader(data), int64(len(data)))
	c.Assert(err, qt.ErrorAs, new(*bmff.InvalidDataError))
}

func TestDecodeMissingMoov(t *testing.T) {
	c := qt.New(t)
	w := bmff.NewWriter(make([]byte, 64))
	w.WriteFtyp([4]byte{'i', 's', 'o', 'm'}, 0, nil)
	data := w.Bytes()

	_, err := bmff.Decode(bytes.NewReader(data), int64(len(data)))
	c.Assert(err, qt.ErrorAs, new(*bmff.BoxNotFoundError))
}
