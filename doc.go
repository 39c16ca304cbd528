// Package splatgo converts 3D Gaussian-splat point clouds from PLY into
// glTF 2.0 (GLB or JSON with an embedded buffer).
//
// # Quick Start
//
//	data, _ := os.ReadFile("scene.ply")
//	res, err := splatgo.Convert(ctx, data,
//	    splatgo.WithFormat(splatgo.FormatGLB),
//	    splatgo.WithCleaning(&clean.Config{MinOpacity: 0.005, MinScale: 1e-4}),
//	)
//	_ = os.WriteFile("scene.glb", res.Data, 0o644)
//
// Or with the fluent builder:
//
//	conv := splatgo.NewBuilder().
//	    QuantizePositions().
//	    QuantizeColors().
//	    Compress().
//	    MustBuild()
//	res, err := conv.Convert(ctx, data)
//
// # Pipeline
//
// A conversion runs these stages in order, each one synchronous:
//
//  1. authorize: verify the license and check quota, input size and format
//     (only with WithAuthorizer)
//  2. decompress: unwrap zstd, LZ4 or gzip input (package codec)
//  3. decode: parse the 62-property splat PLY layout (package ply)
//  4. clean: drop transparent, degenerate and outlying splats (package clean)
//  5. encode: pack attributes and serialize glTF (package export)
//  6. consume: decrement the license quota
//
// Failures are returned as *StageError wrapping the package sentinel, so
// both errors.Is(err, ply.ErrBodyMalformed) and errors.As(err, &stageErr)
// work.
//
// Package batch converts many inputs concurrently from any blobstore.Store.
package splatgo
