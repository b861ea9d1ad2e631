package bmff_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/tetsuo/mp4box"
)

func TestIsFullBox(t *testing.T) {
	c := qt.New(t)
	c.Assert(bmff.IsFullBox(bmff.TypeStsd), qt.IsTrue)
	c.Assert(bmff.IsFullBox(bmff.TypeData), qt.IsTrue)
	c.Assert(bmff.IsFullBox(bmff.TypeTrun), qt.IsTrue)
	c.Assert(bmff.IsFullBox(bmff.TypeMoov), qt.IsFalse)
	c.Assert(bmff.IsFullBox(bmff.TypeFtyp), qt.IsFalse)
}

func TestIsContainerBox(t *testing.T) {
	c := qt.New(t)
	c.Assert(bmff.IsContainerBox(bmff.TypeMoov), qt.IsTrue)
	c.Assert(bmff.IsContainerBox(bmff.TypeIlst), qt.IsTrue)
	c.Assert(bmff.IsContainerBox(bmff.TypeCovr), qt.IsTrue)
	c.Assert(bmff.IsContainerBox(bmff.TypeStsz), qt.IsFalse)
	c.Assert(bmff.IsContainerBox(bmff.TypeEsds), qt.IsFalse)
}

func TestBoxTypeString(t *testing.T) {
	c := qt.New(t)
	c.Assert(bmff.TypeFtyp.String(), qt.Equals, "ftyp")
	c.Assert(bmff.TypeMoov.String(), qt.Equals, "moov")
}
