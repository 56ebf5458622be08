// Package fmdbuild implements the IndexBuilder adapter: it turns a set of
// FASTA files into the on-disk haplotypes scratch file and parameters file
// an external suffix-array builder consumes, shells out to that builder,
// and merges the result into a running index (spec.md §4.8).
package fmdbuild

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// ErrIndexBuildFailed wraps a nonzero exit from the external builder or
// merge tool.
var ErrIndexBuildFailed = errors.New("fmdbuild: external index build failed")

// Logger is the same Debugf/Tracef contract fmd.Logger uses, so a caller
// can thread one logger through both the index and the builder.
type Logger interface {
	Debugf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Tracef(string, ...interface{}) {}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

// Params configures the external builder invocation and the
// haplotypes.rlcsa.parameters file written alongside the scratch FASTA
// (spec.md §6).
type Params struct {
	BlockSize       int
	SampleRate      int
	SupportDisplay  bool
	SupportLocate   bool
	WeightedSamples bool

	// BuilderPath and MergePath name the external binaries invoked via
	// os/exec; both must be on PATH or absolute.
	BuilderPath string
	MergePath   string
	Threads     int
}

// DefaultParams matches the parameters file the original CreateIndex tool
// writes: block size 32, a dense (every-row) suffix-array sample, and
// display/locate support both enabled.
func DefaultParams() Params {
	return Params{
		BlockSize:       32,
		SampleRate:      1,
		SupportDisplay:  true,
		SupportLocate:   true,
		WeightedSamples: false,
		BuilderPath:     "build_rlcsa",
		MergePath:       "merge_rlcsa",
		Threads:         10,
	}
}

// FastaRecord is one parsed FASTA sequence.
type FastaRecord struct {
	Name     string
	Sequence string
}

// Builder accumulates FASTA input, writes the scratch files an external
// suffix-array builder expects, and drives that builder and its merge
// tool to grow an on-disk index basename.
type Builder struct {
	Basename string
	Params   Params

	// GenomeID is the genome id recorded against every contig this Builder
	// writes to the .contigs sidecar (spec.md §6); a multi-genome index is
	// built by running separate Builder/Build calls with distinct GenomeID
	// values against the same Basename.
	GenomeID int

	Log Logger
}

// New returns a Builder writing to the given index basename (the prefix
// shared by every sidecar file: basename.rlcsa.array, basename.contigs,
// and so on).
func New(basename string, params Params) *Builder {
	return &Builder{Basename: basename, Params: params, Log: NopLogger}
}

// ReadFasta parses every record out of a FASTA file, upper-casing
// sequence characters as the original builder does.
func ReadFasta(path string) ([]FastaRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []FastaRecord
	var cur *FastaRecord
	var seq strings.Builder

	flush := func() {
		if cur != nil {
			cur.Sequence = seq.String()
			records = append(records, *cur)
			seq.Reset()
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == '>' {
			flush()
			name := strings.TrimSpace(strings.TrimPrefix(line, ">"))
			cur = &FastaRecord{Name: name}
			continue
		}
		seq.WriteString(strings.ToUpper(strings.TrimSpace(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return records, nil
}

func reverseComplement(seq string) string {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		c := seq[len(seq)-1-i]
		switch c {
		case 'A':
			out[i] = 'T'
		case 'C':
			out[i] = 'G'
		case 'G':
			out[i] = 'C'
		case 'T':
			out[i] = 'A'
		default:
			out[i] = c
		}
	}
	return string(out)
}

// scaffoldTotalLength sums the length field of every contig already recorded
// in an existing .contigs file, so a new WriteHaplotypes call appending to
// that file continues the scaffold-start prefix sum instead of restarting it
// at zero. A missing file (the first build against this basename) starts
// the sum at zero.
func scaffoldTotalLength(contigFile string) (uint64, error) {
	f, err := os.Open(contigFile)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var total uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 4 {
			continue
		}
		length, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("fmdbuild: %s: malformed length field %q: %w", contigFile, fields[2], err)
		}
		total += length
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return total, nil
}

// WriteHaplotypes writes records to haplotypeFile as alternating forward
// and reverse-complement sequences, each NUL-terminated (spec.md §6's raw
// text layout), and appends one "name\tscaffold_start\tlength\tgenome_id"
// line per record to contigFile, matching the four-field format
// fmd.LoadContigs requires. scaffold_start continues the running prefix sum
// of every contig already in contigFile. Progress is reported over records
// with progressbar/v3, matching the teacher's tokenize_multiprocess usage.
func (b *Builder) WriteHaplotypes(haplotypeFile, contigFile string, records []FastaRecord) error {
	hf, err := os.Create(haplotypeFile)
	if err != nil {
		return err
	}
	defer hf.Close()

	scaffoldStart, err := scaffoldTotalLength(contigFile)
	if err != nil {
		return err
	}

	cf, err := os.OpenFile(contigFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer cf.Close()

	bar := progressbar.Default(int64(len(records)))
	for _, r := range records {
		if _, err := fmt.Fprintf(hf, "%s\x00%s\x00", r.Sequence, reverseComplement(r.Sequence)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cf, "%s\t%d\t%d\t%d\n", r.Name, scaffoldStart, len(r.Sequence), b.GenomeID); err != nil {
			return err
		}
		scaffoldStart += uint64(len(r.Sequence))
		bar.Add(1)
		b.Log.Tracef("wrote contig %s (%d bp)", r.Name, len(r.Sequence))
	}
	return nil
}

// WriteParametersFile writes the haplotypes.rlcsa.parameters sidecar the
// external builder reads, in the original CreateIndex tool's key = value
// format (spec.md §6).
func (b *Builder) WriteParametersFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p := b.Params
	_, err = fmt.Fprintf(f,
		"RLCSA_BLOCK_SIZE = %d\nSAMPLE_RATE = %d\nSUPPORT_DISPLAY = %d\nSUPPORT_LOCATE = %d\nWEIGHTED_SAMPLES = %d\n",
		p.BlockSize, p.SampleRate, boolToInt(p.SupportDisplay), boolToInt(p.SupportLocate), boolToInt(p.WeightedSamples),
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RunBuilder shells out to Params.BuilderPath on haplotypeFile, the
// external suffix-array construction step spec.md §4.8 treats as an
// opaque collaborator.
func (b *Builder) RunBuilder(ctx context.Context, haplotypeFile string) error {
	cmd := exec.CommandContext(ctx, b.Params.BuilderPath, haplotypeFile, fmt.Sprintf("%d", b.Params.Threads))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrIndexBuildFailed, b.Params.BuilderPath, out)
	}
	b.Log.Debugf("built %s: %s", haplotypeFile, out)
	return nil
}

// MergeInto merges the index freshly built at otherBasename into
// b.Basename, or adopts it wholesale if b.Basename has no prior index
// (spec.md §4.8's "merges ... when prior index state exists").
func (b *Builder) MergeInto(ctx context.Context, otherBasename string) error {
	if _, err := os.Stat(b.Basename + ".rlcsa.array"); errors.Is(err, os.ErrNotExist) {
		return b.adoptWholesale(otherBasename)
	} else if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, b.Params.MergePath, b.Basename, otherBasename, fmt.Sprintf("%d", b.Params.Threads))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrIndexBuildFailed, b.Params.MergePath, out)
	}
	b.Log.Debugf("merged %s into %s: %s", otherBasename, b.Basename, out)
	return nil
}

func (b *Builder) adoptWholesale(otherBasename string) error {
	for _, suffix := range []string{".rlcsa.array", ".rlcsa.parameters", ".rlcsa.sa_samples"} {
		if err := copyFile(otherBasename+suffix, b.Basename+suffix); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// Build runs the whole pipeline for one FASTA file: parse, write the
// haplotypes/contigs/parameters scratch files in a fresh temp directory,
// invoke the external builder, and merge the result into b.Basename. The
// caller's context governs both the builder and merge subprocesses; the
// temp directory is released on every return path.
func (b *Builder) Build(ctx context.Context, fastaPath string) error {
	records, err := ReadFasta(fastaPath)
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "fmdbuild-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	haplotypeFile := filepath.Join(workDir, "haplotypes")
	if err := b.WriteHaplotypes(haplotypeFile, b.Basename+".contigs", records); err != nil {
		return err
	}
	if err := b.WriteParametersFile(haplotypeFile + ".rlcsa.parameters"); err != nil {
		return err
	}
	if err := b.RunBuilder(ctx, haplotypeFile); err != nil {
		return err
	}
	return b.MergeInto(ctx, haplotypeFile)
}
