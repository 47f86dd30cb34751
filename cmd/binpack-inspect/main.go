package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/binpack"
	"github.com/wippyai/binpack/packfile"
)

func main() {
	var (
		file        = flag.String("file", "", "Path to a sealed packfile")
		raw         = flag.Bool("raw", false, "Treat the file as bare wire bytes with no envelope")
		limit       = flag.Uint64("limit", packfile.DefaultMaxPayload, "Maximum uncompressed payload size")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: binpack-inspect -file <data.bpak> [-limit n]")
		fmt.Fprintln(os.Stderr, "       binpack-inspect -file <data.bin> -raw")
		fmt.Fprintln(os.Stderr, "       binpack-inspect -file <data.bpak> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*file, *raw, *limit); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*file, *raw, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, raw bool, limit uint64) error {
	info, err := inspect(file, raw, limit)
	if err != nil {
		return err
	}

	fmt.Printf("File: %s\n", file)
	fmt.Printf("Sealed size: %d bytes\n", info.sealedSize)
	if !raw {
		fmt.Printf("Codec: %s\n", info.codec)
	}
	fmt.Printf("Payload size: %d bytes\n", info.buf.Len())
	fmt.Printf("\n%s", hexdump(info.buf.Bytes()))
	return nil
}

type fileInfo struct {
	buf        *binpack.Buffer
	codec      packfile.Codec
	sealedSize int
}

// inspect loads file and unwraps its payload into a readable buffer.
func inspect(file string, raw bool, limit uint64) (*fileInfo, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	info := &fileInfo{sealedSize: len(data)}
	if raw {
		info.buf = binpack.From(data)
		return info, nil
	}

	if len(data) >= 7 {
		info.codec = packfile.Codec(data[6])
	}
	buf, err := packfile.OpenLimit(data, limit)
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	info.buf = buf
	return info, nil
}

// hexdump renders data 16 bytes per row with offset and ASCII columns.
func hexdump(data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		row := data[off:min(off+16, len(data))]

		fmt.Fprintf(&b, "%08x  ", off)
		for i := 0; i < 16; i++ {
			if i == 8 {
				b.WriteByte(' ')
			}
			if i < len(row) {
				fmt.Fprintf(&b, "%02x ", row[i])
			} else {
				b.WriteString("   ")
			}
		}

		b.WriteString(" |")
		for _, c := range row {
			if c >= 0x20 && c < 0x7F {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}
