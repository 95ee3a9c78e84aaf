// Package main is the entry point for the kb knowledge base CLI.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/couchkb/couchkb/internal/cli/kbcmd"
	"github.com/couchkb/couchkb/internal/logging"
)

func main() {
	log := logging.New(os.Stderr, logrus.InfoLevel)
	os.Exit(kbcmd.Execute(context.Background(), kbcmd.Deps{Logger: log}, os.Args[1:]))
}
