package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func (a *app) newHexdumpCmd() *cobra.Command {
	var (
		offset int64
		length int
	)
	cmd := &cobra.Command{
		Use:   "hexdump <file>",
		Short: "Dump raw bytes at an offset, for debugging headers and records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			st, err := f.Stat()
			if err != nil {
				return err
			}
			size := st.Size()
			if offset < 0 || offset >= size {
				return fmt.Errorf("invalid offset %d (file size %d)", offset, size)
			}
			if length < 1 {
				return fmt.Errorf("invalid length %d", length)
			}
			n := min(int64(length), size-offset)
			if n < int64(length) {
				a.logger.Warn("length exceeds file, dump truncated", "requested", length, "available", n)
			}

			buf := make([]byte, n)
			if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
				return err
			}
			out := bufio.NewWriter(cmd.OutOrStdout())
			fmt.Fprintf(out, "%d bytes at offset 0x%x of %s (size %d)\n", n, offset, args[0], size)
			dumpHex(out, buf, offset)
			return out.Flush()
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "Start offset in the file")
	cmd.Flags().IntVar(&length, "length", 128, "Number of bytes to dump")
	return cmd
}

// dumpHex writes 16 bytes per line: offset, hex with a gap after 8 bytes,
// and printable ASCII.
func dumpHex(w io.Writer, buf []byte, base int64) {
	for i := 0; i < len(buf); i += 16 {
		line := buf[i:min(i+16, len(buf))]
		fmt.Fprintf(w, "%08x: ", base+int64(i))
		for j := range 16 {
			if j < len(line) {
				fmt.Fprintf(w, "%02x ", line[j])
			} else {
				fmt.Fprint(w, "   ")
			}
			if j == 7 {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprint(w, " |")
		for _, b := range line {
			if b >= 32 && b <= 126 {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}
}
