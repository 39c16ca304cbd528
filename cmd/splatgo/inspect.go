package main

import (
	"encoding/json"

	"github.com/urfave/cli/v2"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print the PLY header, splat count and bounds",
		ArgsUsage: "INPUT",
		Flags:     conversionFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("inspect: expected INPUT", 2)
			}

			b, err := builderFrom(c)
			if err != nil {
				return cli.Exit(err, 2)
			}
			conv, err := b.Build()
			if err != nil {
				return cli.Exit(err, 2)
			}

			data, closeInput, err := readInput(c.Context, c.App.Reader, c.Args().First())
			if err != nil {
				return err
			}
			defer closeInput()

			info, err := conv.Inspect(c.Context, data)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}
