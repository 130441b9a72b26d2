package cart

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ID is an opaque backend identifier. The backend may emit it as a JSON
// number or a JSON string; both decode to the same value.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Ptr returns a pointer to id, or nil when id is empty.
func (id ID) Ptr() *ID {
	if id == "" {
		return nil
	}
	return &id
}

// MarshalJSON encodes IDs in canonical integer form ("12", "-3") as JSON
// numbers and everything else, including "007" and "+5", as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		e.RawStr(string(id))
	} else {
		e.Str(string(id))
	}
	return e.Bytes(), nil
}

// UnmarshalJSON accepts a number, a string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	switch tt := d.Next(); tt {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return errors.Wrap(err, "decode numeric id")
		}
		*id = ID(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "decode string id")
		}
		*id = ID(s)
	case jx.Null:
		*id = ""
	default:
		return errors.Errorf("unexpected id type %s", tt)
	}
	return nil
}

// Flag is a boolean the backend may encode as true/false or 1/0.
type Flag bool

// UnmarshalJSON accepts a bool, a number or null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	switch tt := d.Next(); tt {
	case jx.Bool:
		v, err := d.Bool()
		if err != nil {
			return errors.Wrap(err, "decode flag")
		}
		*f = Flag(v)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return errors.Wrap(err, "decode flag")
		}
		*f = Flag(n.String() != "0")
	case jx.Null:
		*f = false
	default:
		return errors.Errorf("unexpected flag type %s", tt)
	}
	return nil
}

// sqlTimeLayout is how SQLite renders CURRENT_TIMESTAMP, always in UTC.
const sqlTimeLayout = "2006-01-02 15:04:05"

// Timestamp is a backend time sent either as RFC 3339 or as a SQL
// "YYYY-MM-DD HH:MM:SS" string. It encodes as RFC 3339.
type Timestamp struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	e.Str(t.UTC().Format(time.RFC3339Nano))
	return e.Bytes(), nil
}

// UnmarshalJSON accepts an RFC 3339 string, a SQL timestamp string or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "decode timestamp")
		}
		for _, layout := range []string{time.RFC3339Nano, sqlTimeLayout} {
			if v, err := time.Parse(layout, s); err == nil {
				t.Time = v
				return nil
			}
		}
		return errors.Errorf("unrecognized timestamp %q", s)
	case jx.Null:
		t.Time = time.Time{}
	default:
		return errors.Errorf("unexpected timestamp type %s", tt)
	}
	return nil
}
