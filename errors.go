package bmff

import (
	"fmt"
)

// InvalidDataError reports a structural violation discovered during decode:
// a child larger than its parent, an entry count exceeding the payload's
// arithmetic capacity, a zero track id, or a malformed header mid-stream.
type InvalidDataError struct {
	Reason string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid data: %s", e.Reason)
}

// BoxNotFoundError reports a required top-level or direct-child box that is absent.
type BoxNotFoundError struct {
	Type BoxType
}

func (e *BoxNotFoundError) Error() string {
	return fmt.Sprintf("box not found: %s", e.Type)
}

// Box2NotFoundError reports that neither of two alternative boxes
// (e.g. stco or co64) is present, though one is required.
type Box2NotFoundError struct {
	Type1, Type2 BoxType
}

func (e *Box2NotFoundError) Error() string {
	return fmt.Sprintf("box not found: %s or %s", e.Type1, e.Type2)
}

// TrakNotFoundError reports that a sample or track query referenced an unknown track id.
type TrakNotFoundError struct {
	TrackId uint32
}

func (e *TrakNotFoundError) Error() string {
	return fmt.Sprintf("trak not found: track_id %d", e.TrackId)
}

// BoxInTrakNotFoundError reports a required descendant of a trak that is missing.
type BoxInTrakNotFoundError struct {
	TrackId uint32
	Type    BoxType
}

func (e *BoxInTrakNotFoundError) Error() string {
	return fmt.Sprintf("box %s not found in trak %d", e.Type, e.TrackId)
}

// BoxInTrafNotFoundError reports a required descendant of a traf that is missing.
type BoxInTrafNotFoundError struct {
	TrackId uint32
	Type    BoxType
}

func (e *BoxInTrafNotFoundError) Error() string {
	return fmt.Sprintf("box %s not found in traf for track %d", e.Type, e.TrackId)
}

// BoxInStblNotFoundError reports a required descendant of an stbl that is missing.
type BoxInStblNotFoundError struct {
	TrackId uint32
	Type    BoxType
}

func (e *BoxInStblNotFoundError) Error() string {
	return fmt.Sprintf("box %s not found in stbl for track %d", e.Type, e.TrackId)
}

// EntryInStblNotFoundError reports a sample-table lookup out of range
// during non-fragmented sample resolution.
type EntryInStblNotFoundError struct {
	TrackId uint32
	Type    BoxType
	Entry   uint32
}

func (e *EntryInStblNotFoundError) Error() string {
	return fmt.Sprintf("entry %d not found in %s for track %d", e.Entry, e.Type, e.TrackId)
}

// EntryInTrunNotFoundError reports a fragment run-table lookup out of range
// during fragmented sample resolution.
type EntryInTrunNotFoundError struct {
	TrackId uint32
	Type    BoxType
	Entry   uint32
}

func (e *EntryInTrunNotFoundError) Error() string {
	return fmt.Sprintf("entry %d not found in %s for track %d", e.Entry, e.Type, e.TrackId)
}

// UnsupportedBoxVersionError reports a full box whose version field is
// outside the set of versions that box type supports.
type UnsupportedBoxVersionError struct {
	Type    BoxType
	Version uint8
}

func (e *UnsupportedBoxVersionError) Error() string {
	return fmt.Sprintf("unsupported version %d for box %s", e.Version, e.Type)
}
