// Package pkg provides the core libraries for starkviz spatial rasterization.
//
// # Overview
//
// Starkviz turns large collections of points, polygons and pre-gridded tiles
// into a single raster image. The input is split into partitions that render
// independently onto transparent canvases; the partial canvases are then
// composited, optionally placed over a background, and encoded.
//
// # Architecture
//
// The typical data flow through starkviz:
//
//	GeoJSON / WKT / CSV / tile JSON
//	         ↓
//	    [source] package (read records)
//	         ↓
//	    [engine] package (split, render partitions concurrently)
//	         ↓
//	    [render] package (draw one partition through a [projection] view)
//	         ↓
//	    [composite] package (reduce partials, add background)
//	         ↓
//	    [sink] package (PNG/JPEG/GIF/BMP/TIFF)
//
// # Quick Start
//
//	records, _ := source.ReadFile("cities.geojson", "")
//	runner := pipeline.NewRunner(nil, nil, nil)
//
//	opts := pipeline.DefaultGeometryOptions(1024, 512, pipeline.WorldEnvelope, "cities")
//	opts.FillPolygons = true
//	ok, res := runner.VisualizeGeometries(ctx, engine.Split(records, 8), opts)
//	if !ok {
//	    log.Fatal(res.Err)
//	}
//
// # Main Packages
//
// ## Rendering
//
// [projection] - Maps source coordinates to pixels, linearly through an
// envelope or through the fixed Web Mercator world strip.
//
// [canvas] - The RGBA pixel buffer partitions draw on, its drawing
// primitives and the portable byte form used to move partials.
//
// [render] - The vector and tile renderers. A bad record is skipped and
// counted, never fatal.
//
// [composite] - The overlay reducer and the background compositor.
//
// [sink] - Output encoding and file writing.
//
// ## Orchestration
//
// [engine] - Splits input, renders partitions on a bounded worker pool and
// reduces the partials, in memory or through an exchange (memory or Redis).
//
// [pipeline] - The two entry points, VisualizeGeometries and
// VisualizeTiles, with option validation, caching and run recording.
//
// ## Infrastructure
//
// [cache] - Render and background caches (file, Redis, null).
//
// [httputil] - Background downloads with retry.
//
// [runlog] - Run history (JSON lines file or MongoDB).
//
// [observability] - Hooks for metrics and progress reporting.
//
// [errors] - Error codes shared by the CLI and the HTTP server.
//
// # Testing
//
// Run tests:
//
//	go test ./...                 # All tests
//	go test ./pkg/engine/...      # Specific package
//
// [projection]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/projection
// [canvas]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/canvas
// [render]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/render
// [composite]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/composite
// [sink]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/sink
// [source]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/source
// [engine]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/engine
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/httputil
// [runlog]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/runlog
// [observability]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/starkviz/pkg/errors
package pkg
