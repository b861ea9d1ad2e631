package bmff_test

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/tetsuo/mp4box"
)

// TestWriteBoxVariants round-trips every §4.C box-variant writer that has no
// other caller in the decode or sample-locator path, reusing one Writer
// across cases via Reset the way a caller serializing several boxes in
// sequence would.
func TestWriteBoxVariants(t *testing.T) {
	c := qt.New(t)
	raw := make([]byte, 256)
	w := bmff.NewWriter(raw)

	w.WriteVmhd()
	data := w.Bytes()
	r := bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeVmhd)
	c.Assert(r.Flags(), qt.Equals, uint32(1))
	c.Assert(len(r.Data()), qt.Equals, 8)

	w.Reset()
	w.WriteSmhd()
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeSmhd)
	c.Assert(r.Flags(), qt.Equals, uint32(0))
	c.Assert(len(r.Data()), qt.Equals, 4)

	w.Reset()
	w.WriteDref()
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeDref)
	entryCount := binary.BigEndian.Uint32(data[12:16])
	c.Assert(entryCount, qt.Equals, uint32(1))
	r.Enter()
	r.Skip(4)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.BoxType{'u', 'r', 'l', ' '})
	c.Assert(r.Flags(), qt.Equals, uint32(1))
	r.Exit()

	w.Reset()
	w.WriteCo64([]uint64{0x100000000, 42})
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeCo64)
	it := bmff.NewCo64Iter(r.Data())
	c.Assert(it.Count(), qt.Equals, uint32(2))
	v1, ok := it.Next()
	c.Assert(ok, qt.IsTrue)
	c.Assert(v1, qt.Equals, uint64(0x100000000))
	v2, ok := it.Next()
	c.Assert(ok, qt.IsTrue)
	c.Assert(v2, qt.Equals, uint64(42))

	w.Reset()
	cttsEntries := []bmff.CttsEntry{{Count: 3, Offset: -512}, {Count: 1, Offset: 1024}}
	w.WriteCtts(cttsEntries)
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeCtts)
	cit := bmff.NewCttsIter(r.Data(), r.Version())
	c.Assert(cit.Count(), qt.Equals, uint32(2))
	e1, ok := cit.Next()
	c.Assert(ok, qt.IsTrue)
	c.Assert(e1, qt.Equals, cttsEntries[0])
	e2, ok := cit.Next()
	c.Assert(ok, qt.IsTrue)
	c.Assert(e2, qt.Equals, cttsEntries[1])

	w.Reset()
	elstV0 := []bmff.ElstEntry{{SegmentDuration: 2000, MediaTime: 0, MediaRateInt: 1, MediaRateFrac: 0}}
	w.WriteElst(elstV0)
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeElst)
	c.Assert(r.Version(), qt.Equals, uint8(0))
	eit := bmff.NewElstIter(r.Data(), r.Version())
	ee, ok := eit.Next()
	c.Assert(ok, qt.IsTrue)
	c.Assert(ee, qt.Equals, elstV0[0])

	w.Reset()
	elstV1 := []bmff.ElstEntry{{SegmentDuration: uint64(1) << 40, MediaTime: 5000, MediaRateInt: 1, MediaRateFrac: 0}}
	w.WriteElst(elstV1)
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Version(), qt.Equals, uint8(1))
	eit = bmff.NewElstIter(r.Data(), r.Version())
	ee, ok = eit.Next()
	c.Assert(ok, qt.IsTrue)
	c.Assert(ee, qt.Equals, elstV1[0])

	w.Reset()
	w.WriteMehd(5_000_000_000)
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeMehd)
	c.Assert(r.Version(), qt.Equals, uint8(1))
	c.Assert(r.ReadMehd(), qt.Equals, uint64(5_000_000_000))

	w.Reset()
	w.WriteMehd(1000)
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Version(), qt.Equals, uint8(0))
	c.Assert(r.ReadMehd(), qt.Equals, uint64(1000))

	w.Reset()
	w.WriteStyp([4]byte{'m', 's', 'd', 'h'}, 0, [][4]byte{{'m', 's', 'd', 'h'}, {'d', 'a', 's', 'h'}})
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeStyp)
	styp := bmff.ReadFtyp(r.Data())
	c.Assert(styp.MajorBrand, qt.Equals, [4]byte{'m', 's', 'd', 'h'})
	c.Assert(styp.Compatible, qt.DeepEquals, [][4]byte{{'m', 's', 'd', 'h'}, {'d', 'a', 's', 'h'}})

	w.Reset()
	w.WriteSidx(1, 48000, 0, 0, []bmff.SidxEntry{
		{ReferenceType: false, ReferencedSize: 1000, SubsegDuration: 48000, StartsWithSAP: true, SAPType: 1},
	})
	data = w.Bytes()
	r = bmff.NewReader(data)
	c.Assert(r.Next(), qt.IsTrue)
	c.Assert(r.Type(), qt.Equals, bmff.TypeSidx)
	c.Assert(r.Version(), qt.Equals, uint8(1))
	body := r.Data()
	c.Assert(binary.BigEndian.Uint32(body[0:4]), qt.Equals, uint32(1))
	c.Assert(binary.BigEndian.Uint32(body[4:8]), qt.Equals, uint32(48000))
	c.Assert(binary.BigEndian.Uint16(body[26:28]), qt.Equals, uint16(1))
	refField := binary.BigEndian.Uint32(body[28:32])
	c.Assert(refField>>31, qt.Equals, uint32(0))
	c.Assert(refField&0x7FFFFFFF, qt.Equals, uint32(1000))
	c.Assert(binary.BigEndian.Uint32(body[32:36]), qt.Equals, uint32(48000))
	sapField := binary.BigEndian.Uint32(body[36:40])
	c.Assert(sapField>>31, qt.Equals, uint32(1))
	c.Assert((sapField>>28)&0x7, qt.Equals, uint32(1))
}
