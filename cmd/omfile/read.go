package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scigolib/omfiles"
)

func (a *app) newReadCmd() *cobra.Command {
	var (
		path      string
		rangeSpec string
	)
	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Print a hyperslab of an array variable, one row per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := omfiles.Open(args[0], omfiles.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			v, ok := r.Lookup(path)
			if !ok {
				return fmt.Errorf("variable %q not found", path)
			}
			if !v.IsArray() {
				return fmt.Errorf("variable %q is a %s, not an array", path, v.DataType())
			}
			ranges, err := parseRanges(rangeSpec, v.Dims())
			if err != nil {
				return err
			}
			values, err := v.ReadFloat64(cmd.Context(), ranges)
			if err != nil {
				return err
			}

			rowLen := int(ranges[len(ranges)-1].Len())
			out := bufio.NewWriter(cmd.OutOrStdout())
			for i, x := range values {
				if i > 0 {
					if i%rowLen == 0 {
						_ = out.WriteByte('\n')
					} else {
						_ = out.WriteByte(' ')
					}
				}
				_, _ = out.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
			}
			if len(values) > 0 {
				_ = out.WriteByte('\n')
			}
			return out.Flush()
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Variable path, empty for the root")
	cmd.Flags().StringVarP(&rangeSpec, "range", "r", "", "Per-axis start:end list, e.g. 0:2,10:20 (default: everything)")
	return cmd
}

// parseRanges parses "a:b,c:d" into one range per axis. An empty spec selects
// the whole array; an empty bound defaults to the axis start or end.
func parseRanges(spec string, dims []uint64) ([]omfiles.Range, error) {
	if spec == "" {
		return omfiles.FullRange(dims), nil
	}
	parts := strings.Split(spec, ",")
	if len(parts) != len(dims) {
		return nil, fmt.Errorf("range %q has %d axes, variable has %d", spec, len(parts), len(dims))
	}
	ranges := make([]omfiles.Range, len(parts))
	for i, p := range parts {
		lo, hi, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("range %q: axis %d needs start:end", spec, i)
		}
		r := omfiles.Range{Start: 0, End: dims[i]}
		var err error
		if lo != "" {
			if r.Start, err = strconv.ParseUint(lo, 10, 64); err != nil {
				return nil, fmt.Errorf("range %q: axis %d: %w", spec, i, err)
			}
		}
		if hi != "" {
			if r.End, err = strconv.ParseUint(hi, 10, 64); err != nil {
				return nil, fmt.Errorf("range %q: axis %d: %w", spec, i, err)
			}
		}
		ranges[i] = r
	}
	return ranges, nil
}
