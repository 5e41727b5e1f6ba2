package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scigolib/omfiles"
)

// packerValue is a flag holding a packer name.
type packerValue omfiles.PackerID

var _ pflag.Value = (*packerValue)(nil)

func (p *packerValue) String() string {
	return omfiles.PackerID(*p).String()
}

func (p *packerValue) Set(s string) error {
	id, err := omfiles.ParsePacker(s)
	if err != nil {
		return fmt.Errorf("%w (want none, zstd, s2 or lz4)", err)
	}
	*p = packerValue(id)
	return nil
}

func (p *packerValue) Type() string {
	return "packer"
}

func (a *app) newConvertCmd() *cobra.Command {
	var (
		name       string
		packer     = packerValue(omfiles.PackerZstd)
		overwrite  bool
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Rewrite any om file, including legacy files, as version 3",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := omfiles.Open(args[0], omfiles.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			mode := omfiles.CreateExclusive
			if overwrite {
				mode = omfiles.CreateTruncate
			}
			opts := []omfiles.WriterOption{omfiles.WithWriterLogger(a.logger), omfiles.WithPacker(omfiles.PackerID(packer))}
			if !noProgress {
				opts = append(opts, omfiles.WithProgress(chunkProgress(cmd.ErrOrStderr())))
			}
			dst, err := omfiles.Create(args[1], mode, opts...)
			if err != nil {
				return err
			}
			if err := omfiles.ConvertFile(cmd.Context(), dst, src, name); err != nil {
				_ = dst.Close()
				return err
			}
			if err := dst.Close(); err != nil {
				return err
			}
			a.logger.Debug("converted", "src", args[0], "dst", args[1], "version", src.Version())
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the root variable in the output")
	cmd.Flags().Var(&packer, "packer", "Integer packer: none, zstd, s2 or lz4")
	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "Overwrite dst if it exists")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

// chunkProgress returns a progress callback that draws one bar per array.
func chunkProgress(w io.Writer) func(written, total uint64) {
	var bar *progressbar.ProgressBar
	arrays := 0
	return func(written, total uint64) {
		if written == 1 || bar == nil {
			arrays++
			bar = progressbar.NewOptions64(int64(total), //nolint:gosec // G115: chunk counts fit int64
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(fmt.Sprintf("array %d", arrays)),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set64(int64(written)) //nolint:gosec // G115: chunk counts fit int64
		if written == total {
			_ = bar.Finish()
		}
	}
}
