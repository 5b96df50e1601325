// Package recfilter selects records with small boolean queries and serves
// the filtered tables over Apache Arrow Flight.
//
// A query such as
//
//	size > 20 || upper(range) == "ANTARCTIC"
//
// is parsed into a predicate tree (package query). It can be evaluated
// directly by walking the tree, or compiled to a flat program for a small
// stack machine (package vm). Both strategies are available wherever
// records are scanned: Search for record slices, package scan for Arrow
// record streams, and the Flight DoGet handler.
//
// # Quick Start
//
//	whales, _ := catalog.LoadJSONFile("whales.json")
//
//	cat, _ := recfilter.NewCatalogBuilder().
//	    Schema("ocean").
//	        Records("whales", "Whale species", whales).
//	    Build()
//
//	config := recfilter.ServerConfig{Catalog: cat, Strategy: "vm"}
//	grpcServer := grpc.NewServer(recfilter.ServerOptions(config)...)
//	if err := recfilter.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
//
// Clients fetch rows with a JSON ticket naming the table and the query:
//
//	{"schema": "ocean", "table": "whales", "query": "size > 20", "strategy": "ast"}
//
// # Architecture
//
//   - query: Value, Record, predicate AST, parser and tree-walking evaluator
//   - vm: compiler, stack machine and the binary program encoding
//   - filter: DuckDB filter pushdown JSON to predicates and predicates to SQL
//   - catalog: Catalog/Schema/Table interfaces, in-memory, JSON and SQL tables
//   - scan: parallel, order-preserving predicate evaluation over Arrow batches
//   - flight: the Flight service handlers
//
// # Server Lifecycle
//
// NewServer registers Flight service handlers on a user-provided grpc.Server
// but does NOT manage server lifecycle (start/stop/listen). TLS, extra
// interceptors and graceful shutdown stay under the caller's control.
//
// # Evaluation Strategies
//
// The tree walker short-circuits And/Or; the compiled program evaluates both
// operands. A record whose right operand is absent (a missing field, or a
// comparison of mismatched kinds) can therefore match under "ast" and not
// under "vm". Rows selected by "vm" are always selected by "ast".
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on
// RecordReaders returned by scans and on batches they retain.
package recfilter
