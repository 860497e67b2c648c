package domain

// Source identifies the upstream provider that produced a token observation.
type Source string

const (
	SourcePumpFun     Source = "pumpfun"
	SourceMoonshot    Source = "moonshot"
	SourceRaydium     Source = "raydium"
	SourceJupiter     Source = "jupiter" // reserved, no connector yet
	SourceBirdeye     Source = "birdeye"
	SourceDexscreener Source = "dexscreener"
	SourceHelius      Source = "helius" // reserved, no connector yet
)

// AllSources returns every member of the Source enumeration in declaration order.
func AllSources() []Source {
	return []Source{
		SourcePumpFun,
		SourceMoonshot,
		SourceRaydium,
		SourceJupiter,
		SourceBirdeye,
		SourceDexscreener,
		SourceHelius,
	}
}

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a member of the enumeration.
func (s Source) IsValid() bool {
	switch s {
	case SourcePumpFun, SourceMoonshot, SourceRaydium, SourceJupiter,
		SourceBirdeye, SourceDexscreener, SourceHelius:
		return true
	}
	return false
}

// ParseSource converts a config or CLI string into a Source.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.IsValid() {
		return "", ErrUnknownSource
	}
	return src, nil
}

// Transport describes how a connector currently talks to its provider.
type Transport string

const (
	TransportStream Transport = "stream"
	TransportPoll   Transport = "poll"
)
