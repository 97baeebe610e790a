package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/rite/loader"
	"github.com/chazu/rite/wire"
)

func newInspectCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the header, sections and record tree of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, img, err := root.parseFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "; image %s: %d bytes, %d records, depth %d, %d bytes allocated\n",
				args[0], img.Header.Size, img.Root.Count(), img.Root.Depth(), img.Allocated)
			for _, s := range img.Sections {
				fmt.Fprintf(out, "; section %-4s at %6d, %d bytes\n", s.Name(), s.Offset, s.Size)
			}
			_, err = io.WriteString(out, loader.Dump(img.Root))
			return err
		},
	}
}

func newCheckCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Parse images and report whether each one loads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: %v\n", path, err)
					continue
				}
				img, err := root.parse(data)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: %s: %v\n", path, loader.Classify(err), err)
					continue
				}
				fmt.Fprintf(out, "%s: OK (%d records)\n", path, img.Root.Count())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images failed to load", failed, len(args))
			}
			return nil
		},
	}
}

func newDumpCommand(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Write the record tree as a text listing or a CBOR snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "cbor" {
				return fmt.Errorf("invalid format %q: must be text or cbor", format)
			}
			_, img, err := root.parseFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "text" {
				_, err = io.WriteString(out, loader.Dump(img.Root))
				return err
			}
			data, err := wire.Encode(img.Root)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text|cbor)")
	return cmd
}

func newBuildCommand(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build <snapshot>",
		Short: "Rebuild an image from a CBOR snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			snap, err := wire.Unmarshal(data)
			if err != nil {
				return err
			}
			tree, err := snap.Irep()
			if err != nil {
				return err
			}
			image, err := loader.WriteImage(tree)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(image)
				return err
			}
			if err := os.WriteFile(output, image, 0644); err != nil {
				return err
			}
			log.Infof("wrote %s (%d bytes, %d records)", output, len(image), tree.Count())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "image file to write")
	return cmd
}
