// Package engine runs the map and reduce phases of a render.
//
// The map phase renders every partition independently and in parallel;
// the reduce phase folds the partial canvases into one with
// [composite.Merge], in whatever order they complete. Nothing is shared
// between partitions except the read-only view captured by the render
// function.
//
// # Transfer
//
// By default partials stay in memory. With [Local.Transfer] set, each
// partial is encoded as a [canvas.Portable], framed together with its
// statistics, and moved through an [Exchange]. [MemoryExchange] keeps the
// frames in process; [RedisExchange] moves them through a Redis list so
// renderers and the reducer may live in different processes.
//
//	eng := &engine.Local{Workers: 8, Transfer: true, Exchange: engine.NewRedisExchange(client, "")}
//	res, err := eng.Run(ctx, engine.Job{RunID: id, Width: w, Height: h, Partitions: n, Render: fn})
//
// [composite.Merge]: github.com/matzehuels/starkviz/pkg/composite#Merge
// [canvas.Portable]: github.com/matzehuels/starkviz/pkg/canvas#Portable
package engine
