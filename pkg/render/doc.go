// Package render draws one partition of spatial data onto a fresh canvas.
//
// # Overview
//
// A partition is any engine-assigned subset of the input. Each partition is
// rendered independently, with nothing shared between partitions except the
// read-only [projection.View]. Two renderers exist:
//
//   - [Vector] draws points and polygons, projecting every coordinate
//     through the view.
//   - [Tiles] draws gridded tiles whose positions are already expressed in
//     canvas pixel space.
//
// # Best-effort rendering
//
// A bad record never fails its partition. Every record produces an
// [Outcome]: drawn, clipped (nothing of it was visible) or skipped with a
// [Reason]. Outcomes are aggregated into [Stats], which the pipeline
// reports once the run is complete.
//
//	c, stats := render.Vector(view, records)
//	log.Info("partition rendered", "drawn", stats.Drawn, "skipped", stats.Skipped)
//
// # Polygon clipping
//
// Under the linear projection, polygon vertices outside the envelope are
// dropped one by one and the remaining vertices are joined in order. A
// polygon crossing the envelope border can therefore be distorted. This is
// the default ([ClipVertex]); [WithClipMode]([ClipShape]) instead drops the
// whole polygon as soon as one vertex has no position.
//
// [projection.View]: github.com/matzehuels/starkviz/pkg/projection#View
package render
