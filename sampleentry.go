package bmff

// SampleEntry is the decoded payload of a track's single stsd child.
// The grammar permits exactly one sample entry per stsd, dispatched by
// its FourCC; UnknownSampleEntry is the fallback for codecs this package
// does not model explicitly.
type SampleEntry interface {
	sampleEntryTag() BoxType
}

// Avc1SampleEntry is an H.264/AVC visual sample entry.
type Avc1SampleEntry struct {
	Width, Height uint16
	AvcC          []byte // raw avcC configuration record, if present
}

func (Avc1SampleEntry) sampleEntryTag() BoxType { return TypeAvc1 }

// Profile returns the AVC profile name decoded from AvcC, or "" if unknown or absent.
func (e Avc1SampleEntry) Profile() string {
	return AvcProfileName(AvcCProfileIdc(e.AvcC))
}

// Hev1SampleEntry is an H.265/HEVC visual sample entry.
type Hev1SampleEntry struct {
	Width, Height uint16
	HvcC          []byte // raw hvcC configuration record, if present
}

func (Hev1SampleEntry) sampleEntryTag() BoxType { return TypeHev1 }

// Vp09SampleEntry is a VP9 visual sample entry.
type Vp09SampleEntry struct {
	Width, Height uint16
	VpcC          []byte // raw vpcC configuration record, if present
}

func (Vp09SampleEntry) sampleEntryTag() BoxType { return TypeVp09 }

// Mp4aSampleEntry is an AAC audio sample entry.
type Mp4aSampleEntry struct {
	ChannelCount uint16
	SampleSize   uint16
	SampleRate   uint32 // Hz (integer part of the 16.16 fixed-point field)
	Esds         EsdsInfo
	HasEsds      bool
}

func (Mp4aSampleEntry) sampleEntryTag() BoxType { return TypeMp4a }

// ChannelConfigName returns a human name for the esds channel configuration.
func (e Mp4aSampleEntry) ChannelConfigName() string {
	switch e.Esds.ChannelConfig {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	case 0:
		return ""
	default:
		return "Multichannel"
	}
}

// Tx3gSampleEntry is a styled-text (timed text) sample entry. Its payload
// is kept raw: bitstream-level styled-text parsing is out of scope.
type Tx3gSampleEntry struct {
	Raw []byte
}

func (Tx3gSampleEntry) sampleEntryTag() BoxType { return TypeTx3g }

// UnknownSampleEntry is the fallback for sample entry types this package
// does not model explicitly; its raw bytes are retained unexamined.
type UnknownSampleEntry struct {
	FourCC BoxType
	Bytes  []byte
}

func (e UnknownSampleEntry) sampleEntryTag() BoxType { return e.FourCC }
