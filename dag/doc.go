// Package dag provides dependency-graph utilities over named nodes:
// Kahn levelling, topological ordering, cycle reporting and upstream or
// downstream closures.
//
// Graphs are plain values; every function returns results in a
// deterministic order so that schemas built from them are reproducible.
package dag
