package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kestrelhealth/pacsindex/bootstrap"
	"github.com/kestrelhealth/pacsindex/catalog"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, err := bootstrap.Setup(ctx, "pacsindex")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap pacsindex: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	components.Index.OnChange(func(ctx context.Context, event catalog.ChangeEvent) {
		components.Logger.Info("change", "seq", event.Seq, "kind", event.Kind, "resource", event.ResourceID)
	})

	components.Logger.Info("pacsindex ready")

	<-ctx.Done()
	components.Logger.Info("shutting down")
}
