// Package units parses and formats human-readable quantities such as buffer
// sizes, item counts and rates.
package units

import (
	"math"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
)

const humanSizeBase = 1000.0

var siUnit = []string{"", "k", "M", "G", "T", "P", "E", "Z", "Y"}

// FormatCount renders v with SI prefixes and without unit, e.g., "1.5M".
func FormatCount(v float64, precision int) string {
	format := "%." + strconv.Itoa(precision) + "g%s"
	return units.CustomSize(format, v, humanSizeBase, siUnit)
}

// ParseCount parses a quantity such as "4096", "64k", "3M" or "64Ki".
// Prefixes with an "i" are binary; the rest are decimal. The optional
// minMax bounds the result inclusively.
func ParseCount(s string, minMax ...int64) (int64, error) {
	sep := strings.LastIndexAny(s, "0123456789. ")
	if sep == -1 {
		return -1, errors.Errorf("units: invalid quantity %q", s)
	}

	var (
		n   int64
		err error
	)
	if suffix := s[sep+1:]; strings.ContainsAny(suffix, "iI") {
		if strings.HasSuffix(suffix, "i") || strings.HasSuffix(suffix, "I") {
			s += "B"
		}
		n, err = units.RAMInBytes(s)
	} else {
		n, err = units.FromHumanSize(s)
	}
	if err != nil {
		return -1, errors.Wrapf(err, "units: invalid quantity %q", s)
	}

	lo, hi := int64(0), int64(math.MaxInt64)
	if len(minMax) > 0 {
		lo = minMax[0]
	}
	if len(minMax) > 1 {
		hi = minMax[1]
	}
	if n < lo || n > hi {
		return -1, errors.Errorf("units: quantity %q out of range [%d, %d]", s, lo, hi)
	}
	return n, nil
}
