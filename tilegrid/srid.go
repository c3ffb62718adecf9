package tilegrid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SRID is a spatial reference system identifier, zero when undeclared.
type SRID int

const (
	SRIDGoogleMercator SRID = 900913
	SRIDWebMercator    SRID = 3857
)

// ParseSRID parses "3857" or "EPSG:3857".
func ParseSRID(s string) (SRID, error) {
	s = strings.TrimSpace(s)
	if prefix, rest, found := strings.Cut(s, ":"); found {
		if !strings.EqualFold(prefix, "EPSG") {
			return 0, fmt.Errorf("%w: unknown srid authority %q", ErrInvalidGrid, prefix)
		}
		s = rest
	}
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid srid %q", ErrInvalidGrid, s)
	}
	return SRID(n), nil
}

// WebMercator reports whether the reference system is one of the spherical mercator codes.
func (s SRID) WebMercator() bool {
	return s == SRIDGoogleMercator || s == SRIDWebMercator
}

func (s SRID) String() string {
	return "EPSG:" + strconv.Itoa(int(s))
}

// UnmarshalJSON accepts both numeric and string identifiers.
func (s *SRID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		v, err := ParseSRID(text)
		if err != nil {
			return err
		}
		*s = v
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: invalid srid %s", ErrInvalidGrid, data)
	}
	*s = SRID(n)
	return nil
}
