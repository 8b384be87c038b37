// Package shutdown runs registered cleanup hooks when the process is asked
// to stop.
//
// Hooks run in reverse registration order, so a component registered first
// (the one everything else depends on) is torn down last:
//
//	h := shutdown.NewHandler(10*time.Second, log)
//	h.OnShutdown("save", saveImage)
//	h.OnShutdown("listener", drainConnections)
//	sig, err := h.Wait(ctx) // drains, then saves
package shutdown
