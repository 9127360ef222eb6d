// Package statsview is an optional package that is built only when the
// statsview build tag is present.
//
// It provides an HTTP server running locally offering runtime statistics
// of the simulator process. Underlying functionality is provided by
// "github.com/go-echarts/statsview".
//
// After launch, graphical statistics are viewable at:
//
//	localhost:12600/debug/statsview
//
// And standard Go pprof statistics at:
//
//	localhost:12600/debug/pprof/
package statsview
