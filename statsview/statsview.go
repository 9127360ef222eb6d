//go:build statsview

package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Address is where the stats server listens.
const Address = "localhost:12600"

const url = "/debug/statsview"

var mgr *statsview.ViewManager

// Launch starts the stats server in a new goroutine.
func Launch(output io.Writer) {
	viewer.SetConfiguration(viewer.WithAddr(Address))
	mgr = statsview.New()
	go mgr.Start()

	_, _ = fmt.Fprintf(output, "stats server available at %s%s\n", Address, url)
}

// Stop shuts the stats server down if it was launched.
func Stop() {
	if mgr != nil {
		mgr.Stop()
	}
}

// Available returns true if a statsview is available to launch.
func Available() bool {
	return true
}
