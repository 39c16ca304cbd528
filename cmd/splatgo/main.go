// Command splatgo converts Gaussian-splat PLY captures to glTF.
//
//	splatgo convert --clean --compress scene.ply scene.glb
//	splatgo batch --workers 4 --memory-limit 8GiB ./captures s3://models/scenes
//	splatgo inspect scene.ply.zst
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			if msg := exit.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exit.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
