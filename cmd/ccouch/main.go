// Package main is the entry point for the ccouch administration CLI.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/couchkb/couchkb/internal/cli/ccouchcmd"
	"github.com/couchkb/couchkb/internal/logging"
)

func main() {
	log := logging.New(os.Stderr, logrus.WarnLevel)
	os.Exit(ccouchcmd.Execute(context.Background(), ccouchcmd.Deps{Logger: log}, os.Args[1:]))
}
