package domain

import "strings"

// SymbolFormatter converts pair symbols between the aggregator naming
// convention (native quote asset, slash separator, e.g. "ZRX/ETH") and the
// DEX naming convention (wrapped quote asset, dash separator, e.g.
// "ZRX-WETH"). Both conversions are pure and total; round-tripping a symbol
// through both yields the same canonical pair up to case and separator.
type SymbolFormatter struct {
	// NativeQuote is the chain's native asset symbol, e.g. "ETH".
	NativeQuote string
	// WrappedQuote is the wrapped form tradable as a token, e.g. "WETH".
	WrappedQuote string
}

// DefaultFormatter converts between ETH-quoted and WETH-quoted symbols.
var DefaultFormatter = SymbolFormatter{NativeQuote: "ETH", WrappedQuote: "WETH"}

// DexSymbol rewrites a pair symbol to the DEX convention: if the quote is the
// native asset it becomes the wrapped form, and the separator becomes a dash.
// A symbol already quoted in the wrapped asset is only re-cased.
func (f SymbolFormatter) DexSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "-")
	if strings.HasSuffix(s, "-"+f.WrappedQuote) {
		return s
	}
	if strings.HasSuffix(s, "-"+f.NativeQuote) {
		s = strings.TrimSuffix(s, f.NativeQuote) + f.WrappedQuote
	}
	return s
}

// AggregatorSymbol rewrites a pair symbol to the aggregator convention: if the
// quote is the wrapped asset it becomes the native form, and the separator
// becomes a slash. A symbol already quoted in the native asset is only
// re-cased.
func (f SymbolFormatter) AggregatorSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "-", "/")
	if strings.HasSuffix(s, "/"+f.WrappedQuote) {
		s = strings.TrimSuffix(s, f.WrappedQuote) + f.NativeQuote
	}
	return s
}
