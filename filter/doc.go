// Package filter bridges DuckDB filter pushdown and record predicates.
//
// It works in both directions:
//   - Parse reads the filter pushdown JSON the DuckDB Airport extension sends
//     with a scan, and FilterPushdown.Predicate turns it into a query.Predicate
//     that the tree walker or the vm package can evaluate.
//   - DuckDBEncoder renders a query.Predicate as the body of a DuckDB WHERE
//     clause, so a table backed by DuckDB can narrow its scan before the
//     predicate runs on the returned rows.
//
// # Basic Usage
//
// Parse filter JSON received in ScanOptions.Filter:
//
//	fp, err := filter.Parse(scanOpts.Filter)
//	if err != nil {
//	    return err // Malformed JSON
//	}
//
//	pred, err := fp.Predicate()
//	if errors.Is(err, filter.ErrUnsupported) {
//	    // scan without a predicate; DuckDB re-applies the filter
//	}
//
// Encode a predicate to DuckDB SQL:
//
//	enc := filter.NewDuckDBEncoder(nil)
//	where := enc.Encode(query.MustParse(`size > 20 || range == "antarctic"`))
//	// (TRY_CAST(size AS BIGINT) > 20 OR CAST("range" AS VARCHAR) = 'antarctic')
//
// # Column Mapping
//
// Map record field names to backend storage names:
//
//	enc := filter.NewDuckDBEncoder(&filter.EncoderOptions{
//	    ColumnMapping: map[string]string{
//	        "size": "length_m",
//	    },
//	})
//
// ColumnExpressions replaces a field with an arbitrary SQL expression and
// takes precedence over ColumnMapping.
//
// # Widening
//
// Records carry dynamically typed values while SQL columns are statically
// typed, so the encoder produces the widest condition that still keeps every
// matching row. Parts it cannot express safely are dropped:
//   - For AND: Skips unsupported children, keeps others
//   - For OR: If any child is unsupported, skips entire OR expression
//   - Returns empty string if nothing can be encoded
//
// Rows returned by the encoded condition must be re-checked with the
// predicate itself.
package filter
