// minget - extract a regular file from a MINIX version-3 filesystem
// image.
//
// Usage:
//
//	minget [-v] [-p part [-s subpart]] imagefile srcpath [dstpath]
//
// With no dstpath the file is written to standard output.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/luuk/minfs/cmd"
)

func main() {
	app := &cli.App{
		Name:      "minget",
		Usage:     "extract a file from a MINIX v3 filesystem image",
		ArgsUsage: "imagefile srcpath [dstpath]",
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
		fmt.Fprintf(os.Stderr, "minget: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowAppHelp(c)
		return fmt.Errorf("missing required arguments (imagefile, srcpath)")
	}

	opts := cmd.Options{Primary: c.Int("p"), Sub: c.Int("s")}
	if opts.Sub >= 0 && opts.Primary < 0 {
		return fmt.Errorf("-s requires a primary partition (-p)")
	}
	if c.Bool("v") {
		opts.Verbose = os.Stderr
	}

	s, err := cmd.OpenImage(c.Args().Get(0), opts)
	if err != nil {
		return err
	}
	defer s.Close()

	// validate the source before touching the destination
	r, err := cmd.Fetch(s.FS, c.Args().Get(1), opts)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if dst := c.Args().Get(2); dst != "" {
		dstFile, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("opening destination: %w", err)
		}
		defer dstFile.Close()
		out = dstFile
	}

	return cmd.Copy(r, int64(s.FS.Blocksize()), out)
}
