// Package domain defines the core types, errors, and collaborator interfaces
// for the maker bot: trading pairs, quotes, ladder entries, and the narrow
// interfaces through which the engine talks to venues, the DEX, and the chain.
package domain

import (
	"fmt"
	"strings"
)

// Pair is a canonical base/quote trading pair. Base and Quote are upper-case
// asset symbols and are always distinct.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses a pair string such as "ZRX/ETH" or "zrx-weth" into a Pair.
// Both "/" and "-" are accepted as separators; symbols are upper-cased.
func ParsePair(s string) (Pair, error) {
	sep := "/"
	if !strings.Contains(s, sep) {
		sep = "-"
	}
	parts := strings.Split(strings.TrimSpace(s), sep)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("domain: malformed pair %q", s)
	}

	p := Pair{
		Base:  strings.ToUpper(parts[0]),
		Quote: strings.ToUpper(parts[1]),
	}
	if p.Base == p.Quote {
		return Pair{}, fmt.Errorf("domain: pair %q: base and quote must differ", s)
	}
	return p, nil
}

// String returns the canonical slash-separated representation, e.g. "ZRX/ETH".
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}
