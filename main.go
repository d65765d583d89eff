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
			fmt.Fprintln(os.Stderr, "usage: scheduler setup --admin-password <password> [--admin-username admin] [--save-password <password>] [--force]")
			fmt.Fprintln(os.Stderr, "       scheduler run api|client|all")
			fmt.Fprintln(os.Stderr, "       scheduler import [--db orders.db] [--aliases aliases.yml] [--force] <order-book file>")
			fmt.Fprintln(os.Stderr, "       scheduler customers add --username <login> --password <password> --names \"Acme,Acme Corp\"")
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
