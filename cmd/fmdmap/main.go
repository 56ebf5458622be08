// Command fmdmap is a thin driver that loads an on-disk FMD-index and maps
// query strings against it, printing one line per base. It exists only to
// exercise the library end-to-end; the CLI proper (batch input, output
// formats, pipeline integration) is an external collaborator, out of scope
// here (spec.md §1).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"gofmd/bitvector"
	"gofmd/fmd"
	"gofmd/lcp"
	"gofmd/mapper"
	"gofmd/rankbwt"
	"gofmd/salocate"
)

// loadIndex reads the five on-disk files under basename (spec.md §6) and
// wires them into an FmdIndex. The suffix array is loaded memory-mapped
// from basename.ssa, matching the builder's SAMPLE_RATE=1 convention.
func loadIndex(basename string) (*fmd.FmdIndex, error) {
	bwt, err := rankbwt.Load(basename)
	if err != nil {
		return nil, fmt.Errorf("load bwt: %w", err)
	}

	lcpArray, err := lcp.Load(basename + ".lcp")
	if err != nil {
		return nil, fmt.Errorf("load lcp: %w", err)
	}

	backing, err := salocate.OpenMMapBacking(basename + ".ssa")
	if err != nil {
		return nil, fmt.Errorf("load suffix array: %w", err)
	}
	locator := salocate.New(backing, 1, nil)

	contigs, err := fmd.LoadContigs(basename + ".contigs")
	if err != nil {
		return nil, fmt.Errorf("load contigs: %w", err)
	}
	masks, err := fmd.LoadGenomeMasks(basename + ".msk")
	if err != nil {
		return nil, fmt.Errorf("load genome masks: %w", err)
	}
	table, err := fmd.NewContigTable(contigs, masks)
	if err != nil {
		return nil, fmt.Errorf("build contig table: %w", err)
	}

	return fmd.New(bwt, lcpArray, locator, table, nil), nil
}

func printMappings(query string, mappings []mapper.Mapping) {
	for i, m := range mappings {
		if m.IsMapped() {
			fmt.Printf("%d\t%c\ttext=%d\toffset=%d\n", i, query[i], m.Location.Text, m.Location.Offset)
		} else {
			fmt.Printf("%d\t%c\tunmapped\n", i, query[i])
		}
	}
}

func main() {
	var (
		basename   string
		mode       string
		query      string
		minContext int
		zMax       int
	)

	flag.StringVar(&basename, "index", "", "Path prefix of the on-disk index (basename shared by .wt/.counts/.lcp/.ssa/.contigs/.msk)")
	flag.StringVar(&mode, "mode", "mapBoth", "Mapping mode: mapRight, mapLeft, mapBoth, or mismatch")
	flag.StringVar(&query, "query", "", "Query sequence; if empty, read queries from stdin")
	flag.IntVar(&minContext, "min_context", 1, "Minimum context length required before a base counts as mapped")
	flag.IntVar(&zMax, "z_max", 0, "Maximum mismatches tolerated, for -mode=mismatch")

	flag.Parse()

	if basename == "" {
		fmt.Fprintln(os.Stderr, "fmdmap: -index is required")
		os.Exit(1)
	}

	idx, err := loadIndex(basename)
	if err != nil {
		panic(err)
	}

	run := func(q string) {
		q = strings.ToUpper(strings.TrimSpace(q))
		if q == "" {
			return
		}

		var mappings []mapper.Mapping
		var err error

		switch mode {
		case "mapRight":
			mappings, err = mapper.MapRight(idx, q, nil, minContext)
		case "mapLeft":
			mappings, err = mapper.MapLeft(idx, q, nil, minContext)
		case "mismatch":
			ranges := identityRanges(idx)
			mappings, err = mapper.MisMatchMap(idx, ranges, nil, q, minContext, zMax, false)
		default:
			mappings, err = mapper.MapBoth(idx, q, nil, minContext)
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "fmdmap: %v\n", err)
			return
		}
		printMappings(q, mappings)
	}

	if query != "" {
		run(query)
		return
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("query> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		run(line)
	}
}

// identityRanges treats every BWT row as its own equivalence class, for
// -mode=mismatch when no precomputed range partition is available.
func identityRanges(idx *fmd.FmdIndex) *bitvector.BitVector {
	n := uint64(idx.BWTLength())
	rv := bitvector.NewBitVector(n)
	for i := uint64(0); i < n; i++ {
		rv.Set(i)
	}
	rv.Finish(n)
	return rv
}
