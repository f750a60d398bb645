package domain

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrUnparseableInput is returned for every string the coordinate parser does
// not recognize. Callers fall back to treating the input as a place name.
var ErrUnparseableInput = errors.New("unparseable coordinate string")

// Hemisphere is the compass side a coordinate component lies on.
type Hemisphere int

const (
	North Hemisphere = iota + 1
	South
	East
	West
)

func (h Hemisphere) String() string {
	switch h {
	case North:
		return "N"
	case South:
		return "S"
	case East:
		return "E"
	case West:
		return "W"
	default:
		return "?"
	}
}

// Sign returns -1 for the southern and western hemispheres, 1 otherwise.
func (h Hemisphere) Sign() float64 {
	if h == South || h == West {
		return -1
	}
	return 1
}

// defaultHemisphereLetters maps suffix letters to hemispheres. "O" (Oeste) is
// how Spanish-language sources write West.
var defaultHemisphereLetters = map[rune]Hemisphere{
	'N': North,
	'S': South,
	'E': East,
	'W': West,
	'O': West,
}

// Coordinates is a signed decimal-degree latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Lat, c.Lon)
}

// CoordinateParser converts DMS or decimal-with-hemisphere strings into
// Coordinates. A parser is immutable after construction and safe for
// concurrent use.
type CoordinateParser struct {
	letters   map[rune]Hemisphere
	dmsRe     *regexp.Regexp
	decimalRe *regexp.Regexp
}

// ParserOption customizes a CoordinateParser.
type ParserOption func(map[rune]Hemisphere)

// WithHemisphereLetter registers an extra suffix letter, e.g. a locale-specific
// spelling of a compass direction.
func WithHemisphereLetter(letter rune, h Hemisphere) ParserOption {
	return func(m map[rune]Hemisphere) {
		m[letter] = h
	}
}

// NewCoordinateParser builds a parser recognizing N, S, E, W and O plus any
// letters added through options.
func NewCoordinateParser(opts ...ParserOption) *CoordinateParser {
	letters := make(map[rune]Hemisphere, len(defaultHemisphereLetters))
	for k, v := range defaultHemisphereLetters {
		letters[k] = v
	}
	for _, opt := range opts {
		opt(letters)
	}

	class := letterClass(letters)
	return &CoordinateParser{
		letters:   letters,
		dmsRe:     regexp.MustCompile(`(\d+)\s*°\s*(\d+)\s*′\s*(\d+)\s*″\s*(` + class + `)`),
		decimalRe: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*°\s*(` + class + `)`),
	}
}

// letterClass renders the letters as a sorted regexp character class.
func letterClass(letters map[rune]Hemisphere) string {
	rs := make([]rune, 0, len(letters))
	for r := range letters {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })

	var b strings.Builder
	b.WriteByte('[')
	for _, r := range rs {
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteByte(']')
	return b.String()
}

var defaultParser = NewCoordinateParser()

// ParseCoordinates parses s with the default parser.
func ParseCoordinates(s string) (Coordinates, error) {
	return defaultParser.Parse(s)
}

// Parse extracts exactly two coordinates from s. Both must use the same
// notation: two DMS matches are preferred, then two decimal matches. The first
// match is the latitude and the second the longitude. Any other shape, a
// malformed or signed number, or a pair outside [-90,90]x[-180,180], yields
// ErrUnparseableInput.
func (p *CoordinateParser) Parse(s string) (Coordinates, error) {
	dms, err := findNumbers(p.dmsRe, s)
	if err != nil {
		return Coordinates{}, err
	}
	if len(dms) == 2 {
		lat, err := p.dmsValue(dms[0])
		if err != nil {
			return Coordinates{}, err
		}
		lon, err := p.dmsValue(dms[1])
		if err != nil {
			return Coordinates{}, err
		}
		return validRange(Coordinates{Lat: lat, Lon: lon})
	}

	dec, err := findNumbers(p.decimalRe, s)
	if err != nil {
		return Coordinates{}, err
	}
	if len(dec) == 2 {
		lat, err := p.decimalValue(dec[0])
		if err != nil {
			return Coordinates{}, err
		}
		lon, err := p.decimalValue(dec[1])
		if err != nil {
			return Coordinates{}, err
		}
		return validRange(Coordinates{Lat: lat, Lon: lon})
	}

	return Coordinates{}, fmt.Errorf("%w: %q", ErrUnparseableInput, s)
}

// findNumbers returns the submatches of re in s. A match whose number is the
// tail of a longer literal (".5", "12.34.56", "1e2") or carries a sign is an
// error rather than a coordinate.
func findNumbers(re *regexp.Regexp, s string) ([][]string, error) {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	out := make([][]string, 0, len(locs))
	for _, loc := range locs {
		if glued(s, loc[0]) {
			return nil, fmt.Errorf("%w: malformed number in %q", ErrUnparseableInput, s)
		}
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// glued reports whether the number starting at s[start] continues a digit
// run, a decimal point, a sign, or an exponent.
func glued(s string, start int) bool {
	if start == 0 {
		return false
	}
	switch prev := s[start-1]; prev {
	case '.', '-', '+':
		return true
	case 'e', 'E':
		return start >= 2 && (isDigit(s[start-2]) || s[start-2] == '.')
	default:
		return isDigit(prev)
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// dmsValue converts a DMS submatch (full, deg, min, sec, letter) to signed degrees.
func (p *CoordinateParser) dmsValue(m []string) (float64, error) {
	parts := [3]float64{}
	for i := range parts {
		v, err := strconv.ParseUint(m[i+1], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrUnparseableInput, m[0], err)
		}
		parts[i] = float64(v)
	}
	h, err := p.hemisphere(m[4])
	if err != nil {
		return 0, err
	}
	return h.Sign() * (parts[0] + parts[1]/60 + parts[2]/3600), nil
}

// decimalValue converts a decimal submatch (full, value, letter) to signed degrees.
func (p *CoordinateParser) decimalValue(m []string) (float64, error) {
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrUnparseableInput, m[0], err)
	}
	h, err := p.hemisphere(m[2])
	if err != nil {
		return 0, err
	}
	return h.Sign() * v, nil
}

func (p *CoordinateParser) hemisphere(letter string) (Hemisphere, error) {
	r := []rune(letter)
	if len(r) != 1 {
		return 0, fmt.Errorf("%w: hemisphere %q", ErrUnparseableInput, letter)
	}
	h, ok := p.letters[r[0]]
	if !ok {
		return 0, fmt.Errorf("%w: hemisphere %q", ErrUnparseableInput, letter)
	}
	return h, nil
}

func validRange(c Coordinates) (Coordinates, error) {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return Coordinates{}, fmt.Errorf("%w: %s out of range", ErrUnparseableInput, c)
	}
	return c, nil
}

// LooksLikeCoordinates reports whether s carries a degree, minute or second
// mark and is therefore worth handing to the coordinate parser.
func LooksLikeCoordinates(s string) bool {
	return strings.ContainsAny(s, "°′″")
}
