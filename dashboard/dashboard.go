// This file is part of qtrace.
//
// qtrace is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// qtrace is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with qtrace.  If not, see <https://www.gnu.org/licenses/>.

// Package dashboard starts a live runtime-stats HTTP view backed by
// statsview, the teacher's own go.mod dependency for the same purpose —
// adapted here to surface collection-engine activity (goroutine count, GC
// pauses, heap use) for long trace sessions instead of emulator frame
// timing.
package dashboard

import (
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/ezhilan/qtrace/logger"
)

// Start brings up the statsview HTTP server at addr (e.g. ":18066") and
// returns a stop function. Because the command surface is single-threaded
// and synchronous (spec.md §5), the dashboard server runs on its own
// goroutine purely as a read-only observability sink; it never touches the
// registry, cursor, or protocol engine.
func Start(addr string) (stop func()) {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()

	go func() {
		if err := mgr.Start(); err != nil {
			logger.Logf("dashboard", "statsview stopped: %v", err)
		}
	}()

	return mgr.Stop
}
