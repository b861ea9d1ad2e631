package bmff

import (
	"fmt"
	"io"
)

// File is a fully decoded ISOBMFF container: the ftyp/moov metadata plus
// one Track per trak, each carrying whatever moof fragments were attached
// to it by Decode or DecodeFragment.
type File struct {
	size             int64
	majorBrand       BoxType
	minorVersion     uint32
	compatibleBrands []BoxType
	timescale        uint32
	duration         uint64
	fragmentDuration uint64
	fragmented       bool
	tracks           map[uint32]*Track
	trackOrder       []uint32
	metadata         Metadata
}

// Size returns the total byte size of the decoded source.
func (f *File) Size() int64 { return f.size }

// MajorBrand returns the ftyp major_brand.
func (f *File) MajorBrand() BoxType { return f.majorBrand }

// MinorVersion returns the ftyp minor_version.
func (f *File) MinorVersion() uint32 { return f.minorVersion }

// CompatibleBrands returns the ftyp compatible_brands list.
func (f *File) CompatibleBrands() []BoxType { return f.compatibleBrands }

// Duration returns the movie duration in TimeScale units.
func (f *File) Duration() uint64 { return f.duration }

// TimeScale returns the movie-level timescale from mvhd.
func (f *File) TimeScale() uint32 { return f.timescale }

// FragmentDuration returns the mehd fragment_duration from the movie's
// mvex box, in TimeScale units. Zero when the movie carries no mehd.
func (f *File) FragmentDuration() uint64 { return f.fragmentDuration }

// IsFragmented reports whether any moof boxes were attached to this file.
func (f *File) IsFragmented() bool { return f.fragmented }

// Tracks returns every track in trak declaration order.
func (f *File) Tracks() []*Track {
	out := make([]*Track, 0, len(f.trackOrder))
	for _, id := range f.trackOrder {
		out = append(out, f.tracks[id])
	}
	return out
}

// Track looks up a track by id.
func (f *File) Track(trackId uint32) *Track { return f.tracks[trackId] }

// Metadata returns the udta/meta/ilst metadata attached to the movie, if any.
func (f *File) Metadata() Metadata { return f.metadata }

type trexDefaults struct {
	duration uint32
	size     uint32
	flags    uint32
}

type fragmentRun struct {
	moofOffset           int64
	sequenceNumber       uint32
	tfhd                 TfhdInfo
	hasTfdt              bool
	baseMediaDecodeTime  uint64
	trunFlags            uint32
	trunDataOffset       int32
	trunFirstSampleFlags uint32
	trunEntries          []TrunEntry
}

// Track is a thin projection over a trak plus any attached fragment runs.
type Track struct {
	TrackId     uint32
	HandlerType [4]byte
	HandlerName string
	Timescale   uint32
	Duration    uint64
	Width       uint32
	Height      uint32
	SampleEntry SampleEntry
	ElstEntries []ElstEntry

	sttsData []byte
	hasCtts  bool
	cttsData []byte
	cttsVer  uint8
	hasStss  bool
	stssData []byte
	stscData []byte
	stszData []byte
	hasStco  bool
	stcoIs64 bool
	stcoData []byte

	TrexDefaultDuration uint32
	TrexDefaultSize     uint32
	TrexDefaultFlags    uint32

	fragments          []fragmentRun
	fromFragmentReader bool
}

// MediaType classifies a track by its handler type.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaVideo
	MediaAudio
	MediaSubtitle
)

func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "Video"
	case MediaAudio:
		return "Audio"
	case MediaSubtitle:
		return "Subtitle"
	default:
		return "Unknown"
	}
}

// Type returns the track's media type, derived from hdlr.handler_type.
func (t *Track) Type() MediaType {
	switch t.HandlerType {
	case [4]byte{'v', 'i', 'd', 'e'}:
		return MediaVideo
	case [4]byte{'s', 'o', 'u', 'n'}:
		return MediaAudio
	case [4]byte{'s', 'u', 'b', 't'}:
		return MediaSubtitle
	}
	return MediaUnknown
}

// validateCount checks that the declared entry count at data[countOffset:countOffset+4]
// is arithmetically consistent with the remaining payload, before any allocation
// proportional to count is made.
func validateCount(t BoxType, data []byte, countOffset int, entrySize int) (uint32, error) {
	if len(data) < countOffset+4 {
		return 0, &InvalidDataError{Reason: fmt.Sprintf("%s too short for entry count", t)}
	}
	count := be.Uint32(data[countOffset : countOffset+4])
	remaining := len(data) - countOffset - 4
	if entrySize > 0 && uint64(count) > uint64(remaining)/uint64(entrySize) {
		return 0, &InvalidDataError{Reason: fmt.Sprintf("%s entry_count %d exceeds remaining %d bytes", t, count, remaining)}
	}
	return count, nil
}

func validateTrunCount(data []byte, flags uint32) error {
	if len(data) < 4 {
		return &InvalidDataError{Reason: "trun too short for sample count"}
	}
	count := be.Uint32(data[0:4])
	prefix := 4
	if flags&TrunDataOffsetPresent != 0 {
		prefix += 4
	}
	if flags&TrunFirstSampleFlagsPresent != 0 {
		prefix += 4
	}
	stride := 0
	if flags&TrunSampleDurationPresent != 0 {
		stride += 4
	}
	if flags&TrunSampleSizePresent != 0 {
		stride += 4
	}
	if flags&TrunSampleFlagsPresent != 0 {
		stride += 4
	}
	if flags&TrunSampleCompositionTimeOffsetPresent != 0 {
		stride += 4
	}
	remaining := len(data) - prefix
	if remaining < 0 {
		remaining = 0
	}
	if stride > 0 && uint64(count) > uint64(remaining)/uint64(stride) {
		return &InvalidDataError{Reason: fmt.Sprintf("trun entry_count %d exceeds remaining %d bytes", count, remaining)}
	}
	return nil
}

func elstEntrySize(version uint8) int {
	if version == 1 {
		return 20
	}
	return 12
}

// Decode parses a complete ISOBMFF container from source, which must expose
// exactly size bytes of content from its current position. ftyp and moov are
// read as soon as the scanner reaches them; a moof is rejected unless moov
// has already been seen, which ISOBMFF guarantees for any valid fragmented
// file (moov always precedes the first moof).
func Decode(source io.ReadSeeker, size int64) (*File, error) {
	sc := NewScanner(source)
	f := &File{size: size}
	var haveFtyp, haveMoov bool

	for sc.Next() {
		e := sc.Entry()
		if e.Offset >= size {
			break
		}
		switch e.Type {
		case TypeFtyp:
			if haveFtyp {
				continue
			}
			buf := make([]byte, e.DataSize())
			if err := sc.ReadBody(buf); err != nil {
				return nil, err
			}
			ftyp := ReadFtyp(buf)
			f.majorBrand = ftyp.MajorBrand
			f.minorVersion = ftyp.MinorVersion
			f.compatibleBrands = ftyp.Compatible
			haveFtyp = true
		case TypeMoov:
			if haveMoov {
				continue
			}
			buf := make([]byte, e.DataSize())
			if err := sc.ReadBody(buf); err != nil {
				return nil, err
			}
			tracks, order, timescale, duration, fragDur, meta, err := decodeMoov(buf)
			if err != nil {
				return nil, err
			}
			f.tracks = tracks
			f.trackOrder = order
			f.timescale = timescale
			f.duration = duration
			f.fragmentDuration = fragDur
			f.metadata = meta
			haveMoov = true
		case TypeMoof:
			if !haveMoov {
				return nil, &BoxNotFoundError{Type: TypeMoov}
			}
			buf := make([]byte, e.DataSize())
			if err := sc.ReadBody(buf); err != nil {
				return nil, err
			}
			if err := decodeMoof(buf, e.Offset, f.tracks); err != nil {
				return nil, err
			}
			f.fragmented = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !haveFtyp {
		return nil, &BoxNotFoundError{Type: TypeFtyp}
	}
	if !haveMoov {
		return nil, &BoxNotFoundError{Type: TypeMoov}
	}

	return f, nil
}

// DecodeFragment parses a media segment (one or more moof boxes, mdat skipped)
// against a previously decoded init segment, returning a new File whose tracks
// are clones of init's, with the segment's fragments attached. init is left
// unmodified.
func DecodeFragment(init *File, source io.ReadSeeker, size int64) (*File, error) {
	sc := NewScanner(source)
	tracks := make(map[uint32]*Track, len(init.tracks))
	for id, t := range init.tracks {
		clone := *t
		clone.fragments = nil
		clone.fromFragmentReader = true
		tracks[id] = &clone
	}

	var haveMoof bool
	for sc.Next() {
		e := sc.Entry()
		if e.Offset >= size {
			break
		}
		if e.Type != TypeMoof {
			continue
		}
		buf := make([]byte, e.DataSize())
		if err := sc.ReadBody(buf); err != nil {
			return nil, err
		}
		if err := decodeMoof(buf, e.Offset, tracks); err != nil {
			return nil, err
		}
		haveMoof = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !haveMoof {
		return nil, &BoxNotFoundError{Type: TypeMoof}
	}

	return &File{
		size:             size,
		majorBrand:       init.majorBrand,
		minorVersion:     init.minorVersion,
		compatibleBrands: init.compatibleBrands,
		timescale:        init.timescale,
		duration:         init.duration,
		fragmentDuration: init.fragmentDuration,
		tracks:           tracks,
		trackOrder:       init.trackOrder,
		metadata:         init.metadata,
		fragmented:       true,
	}, nil
}

func decodeMoov(buf []byte) (tracks map[uint32]*Track, order []uint32, timescale uint32, duration uint64, fragmentDuration uint64, meta Metadata, err error) {
	r := NewReader(buf)
	tracks = map[uint32]*Track{}
	trexMap := map[uint32]trexDefaults{}
	var mvhdFound bool
	var udtaData []byte
	var hasUdta bool

	for r.Next() {
		switch r.Type() {
		case TypeMvhd:
			if r.Version() > 1 {
				return nil, nil, 0, 0, 0, Metadata{}, &UnsupportedBoxVersionError{Type: TypeMvhd, Version: r.Version()}
			}
			timescale, duration, _ = r.ReadMvhd()
			mvhdFound = true
		case TypeTrak:
			trk, terr := decodeTrak(&r)
			if terr != nil {
				return nil, nil, 0, 0, 0, Metadata{}, terr
			}
			if _, dup := tracks[trk.TrackId]; dup {
				return nil, nil, 0, 0, 0, Metadata{}, &InvalidDataError{Reason: fmt.Sprintf("duplicate track_id %d", trk.TrackId)}
			}
			tracks[trk.TrackId] = trk
			order = append(order, trk.TrackId)
		case TypeMvex:
			r.Enter()
			for r.Next() {
				switch r.Type() {
				case TypeTrex:
					trackId, _, defDur, defSize, defFlags := r.ReadTrex()
					trexMap[trackId] = trexDefaults{duration: defDur, size: defSize, flags: defFlags}
				case TypeMehd:
					fragmentDuration = r.ReadMehd()
				}
			}
			r.Exit()
		case TypeUdta:
			udtaData = append([]byte(nil), r.Data()...)
			hasUdta = true
		}
	}
	if !mvhdFound {
		return nil, nil, 0, 0, 0, Metadata{}, &BoxNotFoundError{Type: TypeMvhd}
	}
	for id, trk := range tracks {
		if d, ok := trexMap[id]; ok {
			trk.TrexDefaultDuration = d.duration
			trk.TrexDefaultSize = d.size
			trk.TrexDefaultFlags = d.flags
		}
	}
	if hasUdta {
		meta = parseUdta(udtaData)
	}
	return tracks, order, timescale, duration, fragmentDuration, meta, nil
}

func decodeTrak(r *Reader) (*Track, error) {
	r.Enter()
	var t Track
	var hasTkhd, hasMdia bool
	for r.Next() {
		switch r.Type() {
		case TypeTkhd:
			if r.Version() > 1 {
				r.Exit()
				return nil, &UnsupportedBoxVersionError{Type: TypeTkhd, Version: r.Version()}
			}
			trackId, _, width, height := r.ReadTkhd()
			t.TrackId = trackId
			t.Width = width >> 16
			t.Height = height >> 16
			hasTkhd = true
		case TypeEdts:
			r.Enter()
			for r.Next() {
				if r.Type() != TypeElst {
					continue
				}
				if r.Version() > 1 {
					r.Exit()
					r.Exit()
					return nil, &UnsupportedBoxVersionError{Type: TypeElst, Version: r.Version()}
				}
				if _, err := validateCount(TypeElst, r.Data(), 0, elstEntrySize(r.Version())); err != nil {
					r.Exit()
					r.Exit()
					return nil, err
				}
				it := NewElstIter(r.Data(), r.Version())
				for {
					e, ok := it.Next()
					if !ok {
						break
					}
					t.ElstEntries = append(t.ElstEntries, e)
				}
			}
			r.Exit()
		case TypeMdia:
			if err := decodeMdia(r, &t); err != nil {
				r.Exit()
				return nil, err
			}
			hasMdia = true
		}
	}
	r.Exit()
	if !hasTkhd {
		return nil, &BoxInTrakNotFoundError{TrackId: 0, Type: TypeTkhd}
	}
	if t.TrackId == 0 {
		return nil, &InvalidDataError{Reason: "track_id is zero"}
	}
	if !hasMdia {
		return nil, &BoxInTrakNotFoundError{TrackId: t.TrackId, Type: TypeMdia}
	}
	return &t, nil
}

func decodeMdia(r *Reader, t *Track) error {
	r.Enter()
	var hasMdhd, hasHdlr, hasMinf bool
	for r.Next() {
		switch r.Type() {
		case TypeMdhd:
			if r.Version() > 1 {
				r.Exit()
				return &UnsupportedBoxVersionError{Type: TypeMdhd, Version: r.Version()}
			}
			ts, dur, _ := r.ReadMdhd()
			t.Timescale, t.Duration = ts, dur
			hasMdhd = true
		case TypeHdlr:
			t.HandlerType = r.ReadHdlr()
			t.HandlerName = r.ReadHdlrName()
			hasHdlr = true
		case TypeMinf:
			if err := decodeMinf(r, t); err != nil {
				r.Exit()
				return err
			}
			hasMinf = true
		}
	}
	r.Exit()
	if !hasMdhd {
		return &BoxInTrakNotFoundError{TrackId: t.TrackId, Type: TypeMdhd}
	}
	if !hasHdlr {
		return &BoxInTrakNotFoundError{TrackId: t.TrackId, Type: TypeHdlr}
	}
	if !hasMinf {
		return &BoxInTrakNotFoundError{TrackId: t.TrackId, Type: TypeMinf}
	}
	return nil
}

func decodeMinf(r *Reader, t *Track) error {
	r.Enter()
	var hasStbl bool
	for r.Next() {
		if r.Type() == TypeStbl {
			if err := decodeStbl(r, t); err != nil {
				r.Exit()
				return err
			}
			hasStbl = true
		}
	}
	r.Exit()
	if !hasStbl {
		return &BoxInTrakNotFoundError{TrackId: t.TrackId, Type: TypeStbl}
	}
	return nil
}

func decodeStbl(r *Reader, t *Track) error {
	r.Enter()
	var hasStsd, hasStts, hasStsc, hasStsz, hasStco bool
	for r.Next() {
		switch r.Type() {
		case TypeStsd:
			se, err := decodeStsd(r)
			if err != nil {
				r.Exit()
				return err
			}
			t.SampleEntry = se
			hasStsd = true
		case TypeStts:
			if _, err := validateCount(TypeStts, r.Data(), 0, 8); err != nil {
				r.Exit()
				return err
			}
			t.sttsData = append([]byte(nil), r.Data()...)
			hasStts = true
		case TypeCtts:
			if _, err := validateCount(TypeCtts, r.Data(), 0, 8); err != nil {
				r.Exit()
				return err
			}
			t.cttsData = append([]byte(nil), r.Data()...)
			t.cttsVer = r.Version()
			t.hasCtts = true
		case TypeStsc:
			if _, err := validateCount(TypeStsc, r.Data(), 0, 12); err != nil {
				r.Exit()
				return err
			}
			t.stscData = append([]byte(nil), r.Data()...)
			hasStsc = true
		case TypeStsz:
			data := r.Data()
			if len(data) < 8 {
				r.Exit()
				return &InvalidDataError{Reason: "stsz too short"}
			}
			if be.Uint32(data[0:4]) == 0 {
				if _, err := validateCount(TypeStsz, data, 4, 4); err != nil {
					r.Exit()
					return err
				}
			}
			t.stszData = append([]byte(nil), data...)
			hasStsz = true
		case TypeStco:
			if _, err := validateCount(TypeStco, r.Data(), 0, 4); err != nil {
				r.Exit()
				return err
			}
			t.stcoData = append([]byte(nil), r.Data()...)
			t.stcoIs64 = false
			hasStco = true
		case TypeCo64:
			if _, err := validateCount(TypeCo64, r.Data(), 0, 8); err != nil {
				r.Exit()
				return err
			}
			t.stcoData = append([]byte(nil), r.Data()...)
			t.stcoIs64 = true
			hasStco = true
		case TypeStss:
			if _, err := validateCount(TypeStss, r.Data(), 0, 4); err != nil {
				r.Exit()
				return err
			}
			t.stssData = append([]byte(nil), r.Data()...)
			t.hasStss = true
		}
	}
	r.Exit()
	if !hasStsd {
		return &BoxInStblNotFoundError{TrackId: t.TrackId, Type: TypeStsd}
	}
	if !hasStts {
		return &BoxInStblNotFoundError{TrackId: t.TrackId, Type: TypeStts}
	}
	if !hasStsc {
		return &BoxInStblNotFoundError{TrackId: t.TrackId, Type: TypeStsc}
	}
	if !hasStsz {
		return &BoxInStblNotFoundError{TrackId: t.TrackId, Type: TypeStsz}
	}
	if !hasStco {
		return &Box2NotFoundError{Type1: TypeStco, Type2: TypeCo64}
	}
	return nil
}

func decodeStsd(r *Reader) (SampleEntry, error) {
	data := r.Data()
	if _, err := validateCount(TypeStsd, data, 0, 0); err != nil {
		return nil, err
	}
	r.Enter()
	r.Skip(4)
	if !r.Next() {
		r.Exit()
		return nil, nil
	}
	se, err := decodeSampleEntry(r)
	r.Exit()
	return se, err
}

func decodeSampleEntry(r *Reader) (SampleEntry, error) {
	switch r.Type() {
	case TypeAvc1:
		vse := ReadVisualSampleEntry(r.Data())
		var avcC []byte
		r.Enter()
		r.Skip(78)
		for r.Next() {
			if r.Type() == TypeAvcC {
				avcC = append([]byte(nil), r.Data()...)
			}
		}
		r.Exit()
		return Avc1SampleEntry{Width: vse.Width, Height: vse.Height, AvcC: avcC}, nil
	case TypeHev1:
		vse := ReadVisualSampleEntry(r.Data())
		var hvcC []byte
		r.Enter()
		r.Skip(78)
		for r.Next() {
			if r.Type() == TypeHvcC {
				hvcC = append([]byte(nil), r.Data()...)
			}
		}
		r.Exit()
		return Hev1SampleEntry{Width: vse.Width, Height: vse.Height, HvcC: hvcC}, nil
	case TypeVp09:
		vse := ReadVisualSampleEntry(r.Data())
		var vpcC []byte
		r.Enter()
		r.Skip(78)
		for r.Next() {
			if r.Type() == TypeVpcC {
				vpcC = append([]byte(nil), r.Data()...)
			}
		}
		r.Exit()
		return Vp09SampleEntry{Width: vse.Width, Height: vse.Height, VpcC: vpcC}, nil
	case TypeMp4a:
		ase := ReadAudioSampleEntry(r.Data())
		e := Mp4aSampleEntry{ChannelCount: ase.ChannelCount, SampleSize: ase.SampleSize, SampleRate: ase.SampleRate >> 16}
		r.Enter()
		r.Skip(28)
		for r.Next() {
			if r.Type() == TypeEsds {
				if info, ok := ReadEsds(r.Data()); ok {
					e.Esds = info
					e.HasEsds = true
				}
			}
		}
		r.Exit()
		return e, nil
	case TypeTx3g:
		return Tx3gSampleEntry{Raw: append([]byte(nil), r.Data()...)}, nil
	default:
		return UnknownSampleEntry{FourCC: r.Type(), Bytes: append([]byte(nil), r.Data()...)}, nil
	}
}

func decodeMoof(buf []byte, moofOffset int64, tracks map[uint32]*Track) error {
	r := NewReader(buf)
	var sequenceNumber uint32
	var hasMfhd bool
	for r.Next() {
		switch r.Type() {
		case TypeMfhd:
			sequenceNumber = r.ReadMfhd()
			hasMfhd = true
		case TypeTraf:
			fr, trackId, err := decodeTraf(&r, moofOffset)
			if err != nil {
				return err
			}
			trk, ok := tracks[trackId]
			if !ok {
				return &TrakNotFoundError{TrackId: trackId}
			}
			fr.sequenceNumber = sequenceNumber
			if n := len(trk.fragments); hasMfhd && n > 0 && fr.sequenceNumber <= trk.fragments[n-1].sequenceNumber {
				return &InvalidDataError{Reason: fmt.Sprintf("moof sequence_number %d out of order for track %d", fr.sequenceNumber, trackId)}
			}
			trk.fragments = append(trk.fragments, fr)
		}
	}
	if !hasMfhd {
		return &BoxNotFoundError{Type: TypeMfhd}
	}
	return nil
}

func decodeTraf(r *Reader, moofOffset int64) (fragmentRun, uint32, error) {
	r.Enter()
	var fr fragmentRun
	var hasTfhd bool
	for r.Next() {
		switch r.Type() {
		case TypeTfhd:
			fr.tfhd = r.ReadTfhd()
			hasTfhd = true
		case TypeTfdt:
			if r.Version() > 1 {
				r.Exit()
				return fr, 0, &UnsupportedBoxVersionError{Type: TypeTfdt, Version: r.Version()}
			}
			fr.baseMediaDecodeTime = r.ReadTfdt()
			fr.hasTfdt = true
		case TypeTrun:
			if err := validateTrunCount(r.Data(), r.Flags()); err != nil {
				r.Exit()
				return fr, 0, err
			}
			it := NewTrunIter(r.Data(), r.Flags())
			fr.trunFlags = r.Flags()
			fr.trunDataOffset = it.DataOffset()
			fr.trunFirstSampleFlags = it.FirstSampleFlags()
			for {
				e, ok := it.Next()
				if !ok {
					break
				}
				fr.trunEntries = append(fr.trunEntries, e)
			}
		}
	}
	r.Exit()
	if !hasTfhd {
		return fr, 0, &BoxInTrafNotFoundError{Type: TypeTfhd}
	}
	fr.moofOffset = moofOffset
	return fr, fr.tfhd.TrackId, nil
}
