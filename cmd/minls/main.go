// minls - list the contents of a MINIX version-3 filesystem image.
//
// Usage:
//
//	minls [-v] [-p part [-s subpart]] imagefile [path]
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/luuk/minfs/cmd"
)

func main() {
	app := &cli.App{
		Name:      "minls",
		Usage:     "list the contents of a MINIX v3 filesystem image",
		ArgsUsage: "imagefile [path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "p",
				Usage: "select primary partition `num` for the filesystem",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "s",
				Usage: "select subpartition `num` for the filesystem",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "v",
				Usage: "verbose: print partition table(s), superblock and source inode to stderr",
			},
		},
		HideHelpCommand: true,
		Action:          run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "minls: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowAppHelp(c)
		return fmt.Errorf("missing required argument (imagefile)")
	}

	opts := cmd.Options{Primary: c.Int("p"), Sub: c.Int("s")}
	if opts.Sub >= 0 && opts.Primary < 0 {
		return fmt.Errorf("-s requires a primary partition (-p)")
	}
	if c.Bool("v") {
		opts.Verbose = os.Stderr
	}

	path := "/"
	if c.NArg() > 1 {
		path = c.Args().Get(1)
	}

	s, err := cmd.OpenImage(c.Args().Get(0), opts)
	if err != nil {
		return err
	}
	defer s.Close()

	return cmd.Ls(s.FS, path, os.Stdout, opts)
}
