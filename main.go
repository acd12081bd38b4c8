package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/vrsandeep/storydesk/internal/config"
	"github.com/vrsandeep/storydesk/internal/console"
	"github.com/vrsandeep/storydesk/internal/core"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	fs := pflag.NewFlagSet("storydesk", pflag.ExitOnError)
	fs.SetInterspersed(false)
	config.BindFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: storydesk [flags] [command [args]]")
		fmt.Fprintln(os.Stderr, "Without a command the interactive console starts. Run \"storydesk help\" for the commands.")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	config.Watch(app.ApplyConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := console.New(app, os.Stdin, os.Stdout)
	args := fs.Args()
	if len(args) > 0 && args[0] != "console" {
		if err := c.Execute(ctx, args); err != nil {
			if errors.Is(err, console.ErrUsage) {
				os.Exit(2)
			}
			os.Exit(1)
		}
		return
	}

	// The console blocks on stdin, so an interrupt closes the app and exits.
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		app.Close()
		os.Exit(130)
	}()

	app.StartJobs()
	if err := c.Run(ctx); err != nil {
		log.Printf("Warning: console stopped: %v", err)
	}
}
