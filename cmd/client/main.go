package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"edusocial/cmd/app"
	"edusocial/internal/config"
)

func main() {
	std := log.New(os.Stderr, "EDUSOCIAL : ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.LoadConfig()
	notify := &printNotifier{w: os.Stdout}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, notify, func() {
		fmt.Fprintln(os.Stderr, "Session expired, run login again")
	})
	if err != nil {
		std.Fatal(err)
	}

	cli := commandLine{
		svc:       a.Services,
		session:   a.Session,
		transport: a.Transport,
		cfg:       cfg,
		log:       a.Log,
		out:       os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	if cerr := a.Close(); cerr != nil {
		a.Log.Warn("closing", cerr)
	}
	if err != nil {
		if err != errHelp {
			std.Printf("error: %s\n", err)
		}
		os.Exit(1)
	}
}
