package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/replicate/rangefetch/cmd"
	"github.com/replicate/rangefetch/pkg/logging"
)

func main() {
	logging.SetupLogger()
	rootCMD := cmd.GetRootCommand()

	// allows us to see how many rangefetch procs are running at a time
	tmpFile := fmt.Sprintf("%s/.rangefetch-%d", os.TempDir(), os.Getpid())
	_ = os.WriteFile(tmpFile, []byte(""), 0644)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCMD.ExecuteContext(ctx)
	stop()
	_ = os.Remove(tmpFile)
	if err != nil {
		os.Exit(1)
	}
}
