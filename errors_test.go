package bmff_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/tetsuo/mp4box"
)

func TestErrorMessages(t *testing.T) {
	c := qt.New(t)
	c.Assert((&bmff.BoxNotFoundError{Type: bmff.TypeMoov}).Error(), qt.Equals, "box not found: moov")
	c.Assert((&bmff.Box2NotFoundError{Type1: bmff.TypeStco, Type2: bmff.TypeCo64}).Error(),
		qt.Equals, "box not found: stco or co64")
	c.Assert((&bmff.TrakNotFoundError{TrackId: 7}).Error(), qt.Equals, "trak not found: track_id 7")
	c.Assert((&bmff.UnsupportedBoxVersionError{Type: bmff.TypeTfdt, Version: 9}).Error(),
		qt.Equals, "unsupported version 9 for box tfdt")
	c.Assert((&bmff.EntryInTrunNotFoundError{TrackId: 2, Type: bmff.TypeTrun, Entry: 5}).Error(),
		qt.Equals, "entry 5 not found in trun for track 2")
}
