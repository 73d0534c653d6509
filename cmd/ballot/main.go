package main

import (
	"fmt"
	"os"
	"time"

	"github.com/axiomesh/ballot"
	"github.com/urfave/cli/v2"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "Ballot"
	app.Usage = "Weighted governance voting ledger"
	app.Compiled = time.Now()

	cli.VersionPrinter = func(c *cli.Context) {
		printVersion()
	}

	// global flags
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "repo",
			Usage: "Ballot storage repo path",
		},
	}

	app.Commands = []*cli.Command{
		configCMD,
		initCMD,
		execCMD,
		queryCMD,
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "Ballot version",
			Action: func(ctx *cli.Context) error {
				printVersion()
				return nil
			},
		},
	}

	return app
}

func printVersion() {
	fmt.Printf("Ballot version: %s-%s-%s\n", ballot.CurrentVersion, ballot.CurrentBranch, ballot.CurrentCommit)
	fmt.Printf("App build date: %s\n", ballot.BuildDate)
	fmt.Printf("System version: %s\n", ballot.Platform)
	fmt.Printf("Golang version: %s\n", ballot.GoVersion)
	fmt.Println()
}
