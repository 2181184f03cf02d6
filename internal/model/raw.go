package model

// RawRecord is one record as produced by a demo decoder. Field names and
// value types vary between decoders; the normalizer owns the mapping.
type RawRecord struct {
	Kind   string
	Tick   int
	Fields map[string]any
}

// RawMatch is a decoder's complete output for one recording.
type RawMatch struct {
	MatchID  string
	MapName  string
	Source   string
	TickRate float64
	Records  []RawRecord
}
