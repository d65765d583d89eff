package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mrkishore97/production-scheduler-v3/internal/schedcli"
)

func main() {
	if err := schedcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, schedcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			schedcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
