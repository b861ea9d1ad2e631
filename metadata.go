package bmff

import "golang.org/x/text/encoding/unicode"

// Metadata holds the iTunes-style movie metadata exposed by udta/meta/ilst.
// A field whose backing atom is absent is the zero value, not an error.
type Metadata struct {
	Title   string
	Year    int
	Summary string
	Poster  []byte
}

var handlerMdir = [4]byte{'m', 'd', 'i', 'r'}

func parseUdta(data []byte) Metadata {
	r := NewReader(data)
	for r.Next() {
		if r.Type() == TypeMeta {
			return parseMeta(r.Data())
		}
	}
	return Metadata{}
}

func parseMeta(data []byte) Metadata {
	r := NewReader(data)
	var isMdir bool
	var ilstData []byte
	for r.Next() {
		switch r.Type() {
		case TypeHdlr:
			if r.ReadHdlr() == handlerMdir {
				isMdir = true
			}
		case TypeIlst:
			ilstData = append([]byte(nil), r.Data()...)
		}
	}
	if !isMdir || ilstData == nil {
		return Metadata{}
	}
	return parseIlst(ilstData)
}

func parseIlst(data []byte) Metadata {
	var md Metadata
	r := NewReader(data)
	for r.Next() {
		switch r.Type() {
		case TypeNam:
			md.Title = ilstText(&r)
		case TypeDay:
			md.Year = parseYearPrefix(ilstText(&r))
		case TypeDes, TypeDesc:
			md.Summary = ilstText(&r)
		case TypeCovr:
			md.Poster = ilstBytes(&r)
		}
	}
	return md
}

// ilstText reads the text value out of the data atom nested inside the
// current ilst tag box (e.g. ©nam).
func ilstText(r *Reader) string {
	data := ilstDataValue(r)
	if data == nil {
		return ""
	}
	typeIndicator := be.Uint32(data[0:4])
	value := data[8:]
	if typeIndicator == 2 {
		return decodeUTF16BE(value)
	}
	return string(value)
}

func ilstBytes(r *Reader) []byte {
	data := ilstDataValue(r)
	if data == nil {
		return nil
	}
	return append([]byte(nil), data[8:]...)
}

// ilstDataValue enters the current tag box, finds its single `data` child
// and returns its full payload ({type_indicator, locale, value}).
func ilstDataValue(r *Reader) []byte {
	r.Enter()
	var data []byte
	for r.Next() {
		if r.Type() == TypeData && len(r.Data()) >= 8 {
			data = r.Data()
		}
	}
	r.Exit()
	return data
}

func decodeUTF16BE(b []byte) string {
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

func parseYearPrefix(s string) int {
	if len(s) < 4 {
		return 0
	}
	n := 0
	for i := 0; i < 4; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
