package parser

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pable/cs-round-features/internal/model"
)

// headerKind marks the optional first line of a record dump carrying match
// metadata. Every other line is one raw record: "kind", an optional "tick",
// and the record's fields.
const headerKind = "match"

const maxLine = 1 << 20

// ReadJSONL reads a record dump. Without a header line, the match id is the
// SHA-256 of the content.
func ReadJSONL(r io.Reader, source string) (*model.RawMatch, error) {
	h := sha256.New()
	sc := bufio.NewScanner(io.TeeReader(r, h))
	sc.Buffer(make([]byte, 64*1024), maxLine)

	m := &model.RawMatch{Source: source}
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("decode %s line %d: %w", source, line, err)
		}

		kind, _ := obj["kind"].(string)
		delete(obj, "kind")
		if kind == headerKind {
			if err := header(m, obj); err != nil {
				return nil, fmt.Errorf("decode %s line %d: %w", source, line, err)
			}
			continue
		}

		rec := model.RawRecord{Kind: kind, Tick: -1, Fields: obj}
		if n, ok := obj["tick"].(json.Number); ok {
			if t, err := n.Int64(); err == nil {
				rec.Tick = int(t)
				delete(obj, "tick")
			}
		}
		m.Records = append(m.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	if m.MatchID == "" {
		m.MatchID = fmt.Sprintf("%x", h.Sum(nil))
	}
	return m, nil
}

func header(m *model.RawMatch, obj map[string]any) error {
	if v, ok := obj["match_id"].(string); ok {
		m.MatchID = v
	}
	if v, ok := obj["map_name"].(string); ok {
		m.MapName = v
	}
	if v, ok := obj["tick_rate"].(json.Number); ok {
		f, err := v.Float64()
		if err != nil {
			return fmt.Errorf("tick_rate: %w", err)
		}
		m.TickRate = f
	}
	return nil
}

// WriteJSONL writes m as a record dump ReadJSONL can load back.
func WriteJSONL(w io.Writer, m *model.RawMatch) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	head := map[string]any{"kind": headerKind, "match_id": m.MatchID, "map_name": m.MapName}
	if m.TickRate > 0 {
		head["tick_rate"] = m.TickRate
	}
	if err := enc.Encode(head); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for i, rec := range m.Records {
		obj := make(map[string]any, len(rec.Fields)+2)
		for k, v := range rec.Fields {
			obj[k] = v
		}
		obj["kind"] = rec.Kind
		if rec.Tick >= 0 {
			obj["tick"] = rec.Tick
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// LoadJSONL reads the record dump at path.
func LoadJSONL(path string) (*model.RawMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record dump: %w", err)
	}
	defer f.Close()
	return ReadJSONL(f, path)
}
