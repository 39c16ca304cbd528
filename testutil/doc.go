// Package testutil provides testing utilities for splatgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random generator for synthetic splat collections and a
// raw PLY builder that writes files from stored (file representation) values.
//
// # Random Splats
//
//	rng := testutil.NewRNG(seed)
//	c := rng.Splats(1000)                 // uniform positions in [-1, 1)
//	c := rng.ClusteredSplats(1000, 0.1)   // tight cluster around the origin
//
// # Raw PLY Files
//
//	b := testutil.NewPLYBuilder(true)     // binary_little_endian
//	b.Add(testutil.Record{Position: [3]float32{1, 2, 3}, Opacity: 0.5})
//	data := b.Bytes()
package testutil
