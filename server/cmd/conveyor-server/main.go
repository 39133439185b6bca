package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/conveyorci/conveyor/common/util"
	"github.com/conveyorci/conveyor/common/version"
	"github.com/conveyorci/conveyor/server/app"
)

func main() {
	fmt.Printf("Conveyor Server %s\n", version.String())
	fmt.Printf("Starting with args: %v\n", util.FilterOSArgs(os.Args, app.LogSafeFlags))

	config, err := app.ConfigFromFlags()
	if err != nil {
		log.Fatalf("Error parsing flags: %s", err)
	}

	server, cleanup, err := app.New(context.Background(), config)
	if err != nil {
		log.Fatalf("Error creating app: %s", err)
	}
	defer cleanup()

	serverLog := server.LogFactory("ConveyorServer")
	serverLog.Infof("Trigger engine ready (database driver %s)", server.DB.Driver)

	// Wait for SIGINT or SIGTERM before shutting down
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	log.Print("Server shutdown complete")
}
