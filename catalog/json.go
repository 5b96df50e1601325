package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/recfilter/query"
)

// LoadJSON reads records from r. The input is either a single JSON array of
// objects or newline-delimited objects. Nested objects are flattened into
// dotted field names ({"pos": {"lat": 1}} becomes "pos.lat"). Arrays inside
// a record are rejected with query.ErrUnsupportedValue.
func LoadJSON(r io.Reader) ([]query.Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	if first == '[' {
		var objects []map[string]any
		if err := dec.Decode(&objects); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		records := make([]query.Record, 0, len(objects))
		for i, obj := range objects {
			rec, err := flattenRecord(obj)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			records = append(records, rec)
		}
		return records, nil
	}

	var records []query.Record
	for i := 0; ; i++ {
		var obj map[string]any
		err := dec.Decode(&obj)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		rec, err := flattenRecord(obj)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
}

// LoadJSONFile reads records from the JSON or NDJSON file at path.
func LoadJSONFile(path string) ([]query.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadJSON(f)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func flattenRecord(obj map[string]any) (query.Record, error) {
	rec := make(query.Record, len(obj))
	if err := flattenInto(rec, "", obj); err != nil {
		return nil, err
	}
	return rec, nil
}

func flattenInto(rec query.Record, prefix string, obj map[string]any) error {
	for k, x := range obj {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := x.(map[string]any); ok {
			if err := flattenInto(rec, name, nested); err != nil {
				return err
			}
			continue
		}
		v, err := query.FromAny(x)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		rec[name] = v
	}
	return nil
}
