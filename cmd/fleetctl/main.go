// Command fleetctl performs administrative tasks against a fleetbook deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	deps := &liveDeps{}
	err := newRootCmd(deps).ExecuteContext(ctx)
	deps.Close()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleetctl: %v\n", err)
		os.Exit(1)
	}
}
