package bmff_test

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/tetsuo/mp4box"
)

// writeUdta appends a udta/meta/ilst tree carrying title, year, summary and
// a poster image, using the data-atom layout {type_indicator, locale, value}.
func writeUdta(w *bmff.Writer, title, year, summary string, poster []byte) {
	putDataTag := func(tag bmff.BoxType, typeIndicator uint32, value []byte) {
		w.StartBox(tag)
		w.StartFullBox(bmff.TypeData, 0, 0)
		buf := make([]byte, 8+len(value))
		buf[3] = byte(typeIndicator)
		copy(buf[8:], value)
		_, _ = w.Write(buf)
		w.EndBox()
		w.EndBox()
	}

	w.StartBox(bmff.TypeUdta)
	w.StartFullBox(bmff.TypeMeta, 0, 0)
	w.WriteHdlr([4]byte{'m', 'd', 'i', 'r'}, "")
	w.StartBox(bmff.TypeIlst)
	putDataTag(bmff.TypeNam, 1, []byte(title))
	putDataTag(bmff.TypeDay, 1, []byte(year))
	putDataTag(bmff.TypeDesc, 1, []byte(summary))
	putDataTag(bmff.TypeCovr, 13, poster)
	w.EndBox() // ilst
	w.EndBox() // meta
	w.EndBox() // udta
}

func TestDecodeMovieMetadata(t *testing.T) {
	c := qt.New(t)
	poster := []byte{0xFF, 0xD8, 0xFF, 0x00}
	data := buildMovie(func(w *bmff.Writer) {
		writeUdta(w, "My Movie", "2023-01-01", "A short summary.", poster)
	})

	f, err := bmff.Decode(bytes.NewReader(data), int64(len(data)))
	c.Assert(err, qt.IsNil)

	md := f.Metadata()
	c.Assert(md.Title, qt.Equals, "My Movie")
	c.Assert(md.Year, qt.Equals, 2023)
	c.Assert(md.Summary, qt.Equals, "A short summary.")
	c.Assert(md.Poster, qt.DeepEquals, poster)
}

func TestDecodeMovieNoMetadata(t *testing.T) {
	c := qt.New(t)
	data := buildMinimalMovie()

	f, err := bmff.Decode(bytes.NewReader(data), int64(len(data)))
	c.Assert(err, qt.IsNil)
	c.Assert(f.Metadata(), qt.DeepEquals, bmff.Metadata{})
}
