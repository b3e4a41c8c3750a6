// Command formdump decodes multipart/form-data bodies from files, stdin or
// HTTP uploads and reports the parts they contain.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Verbose int `short:"v" type:"counter" help:"Log verbosity (-v info, -vv debug)."`

	Decode DecodeCmd `cmd:"" help:"Decode a multipart body from a file or stdin."`
	Serve  ServeCmd  `cmd:"" help:"Accept multipart uploads over HTTP and store their files."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("formdump"),
		kong.Description("Stream multipart/form-data bodies into parameters and files."),
		kong.UsageOnError(),
		kong.DefaultEnvars("FORMDUMP"),
	)

	logger := newLogger(os.Stderr, cli.Verbose)
	err := ctx.Run(logger)
	if err != nil {
		logger.Error("formdump failed", slog.Any("error", err))
		os.Exit(1)
	}
}
