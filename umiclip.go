package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/pgzip"
)

type FastqRead struct {
	Header   string
	Sequence string
	Quality  string
}

// clip removes the first boundary bases from the sequence and the
// corresponding quality symbols, keeping the primer onward verbatim.
func (r *FastqRead) clip(boundary int) *FastqRead {
	return &FastqRead{
		Header:   r.Header,
		Sequence: r.Sequence[boundary:],
		Quality:  r.Quality[boundary:],
	}
}

// readID is the header token before the first space, without the leading '@'.
func readID(header string) string {
	id := strings.TrimPrefix(header, "@")
	if i := strings.IndexByte(id, ' '); i >= 0 {
		id = id[:i]
	}
	return id
}

// Options is the full configuration surface of one run.
type Options struct {
	PrimerFile  string
	InputFastq  string
	OutputFastq string // empty disables FASTQ output
	UMILength   int
	MaxOffset   int
	MaxMismatch int
	ReturnAll   bool // write rejected reads unmodified instead of dropping them
	Verbose     bool
}

// Stats counts per-read outcomes for the end-of-run summary.
type Stats struct {
	TotalReads    int64
	AcceptedReads int64
	NoPrimerMatch int64
	Ambiguous     int64
	TooShort      int64
}

type scanResult struct {
	read *FastqRead
	dec  ClipDecision
}

// processBatch scans a batch of reads, counts rejections by reason, and
// forwards to the writer every accepted read plus, under returnAll, every
// rejected one.
func processBatch(
	batch []*FastqRead,
	primers []Primer,
	params ScanParams,
	returnAll, verbose bool,
	resultsChan chan<- scanResult,
	wg *sync.WaitGroup,
	stats *Stats,
) {
	defer wg.Done()

	for _, read := range batch {
		dec := scanRead(primers, read.Sequence, params)
		if !dec.Accepted {
			switch dec.Reason {
			case NoPrimerMatch:
				atomic.AddInt64(&stats.NoPrimerMatch, 1)
			case AmbiguousMatch:
				atomic.AddInt64(&stats.Ambiguous, 1)
			case ReadTooShort:
				atomic.AddInt64(&stats.TooShort, 1)
			}
			if verbose {
				log.Printf("read %s: rejected (%s)", readID(read.Header), dec.Reason)
			}
			if !returnAll {
				continue
			}
		}
		resultsChan <- scanResult{read: read, dec: dec}
	}
}

// Writer goroutine: emits clipped FASTQ records and one mapping row per
// accepted read (id, UMI, primer, mismatches, offset).
func writeResults(
	fastqWriter *bufio.Writer,
	mapWriter *bufio.Writer,
	umiLength int,
	resultsChan <-chan scanResult,
	doneChan chan<- struct{},
	acceptedReads *int64,
) {
	for res := range resultsChan {
		out := res.read
		if res.dec.Accepted {
			out = res.read.clip(res.dec.Boundary)
			umi := res.read.Sequence[res.dec.Offset : res.dec.Offset+umiLength]
			fmt.Fprintf(mapWriter, "%s\t%s\t%s\t%d\t%d\n",
				readID(res.read.Header), umi, res.dec.PrimerID, res.dec.Mismatches, res.dec.Offset)
			atomic.AddInt64(acceptedReads, 1)
		}
		if fastqWriter != nil {
			fastqWriter.WriteString(out.Header + "\n")
			fastqWriter.WriteString(out.Sequence + "\n")
			fastqWriter.WriteString("+\n")
			fastqWriter.WriteString(out.Quality + "\n")
		}
	}
	if fastqWriter != nil {
		fastqWriter.Flush()
	}
	mapWriter.Flush()
	close(doneChan)
}

// openFastq sniffs the gzip magic bytes so both compressed and plain FASTQ
// input work. The returned closer stops the decompressor when one was used.
func openFastq(f *os.File) (io.Reader, func() error, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && len(magic) < 2 {
		// shorter than two bytes: treat as plain, the scanner sees EOF
		return br, func() error { return nil }, nil
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gr, err := pgzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return gr, gr.Close, nil
	}
	return br, func() error { return nil }, nil
}

func Comma(value int64) string {
	str := strconv.FormatInt(value, 10)
	result := ""
	count := 0
	for i := len(str) - 1; i >= 0; i-- {
		if count > 0 && count%3 == 0 {
			result = "," + result
		}
		result = string(str[i]) + result
		count++
	}
	return result
}

// ProcessReads streams the input FASTQ through the offset scanner in
// batches and writes the clipped output plus the per-read mapping rows to
// mapOut. It returns the outcome counts.
func ProcessReads(opts Options, mapOut io.Writer) (Stats, error) {
	var stats Stats

	params := ScanParams{
		UMILength:   opts.UMILength,
		MaxOffset:   opts.MaxOffset,
		MaxMismatch: opts.MaxMismatch,
	}
	if err := params.validate(); err != nil {
		return stats, err
	}

	primers, err := LoadPrimers(opts.PrimerFile)
	if err != nil {
		return stats, err
	}
	if opts.Verbose {
		log.Printf("using UMI length of %d", opts.UMILength)
		log.Printf("using maximum offset of %d", opts.MaxOffset)
		log.Printf("allowing <=%d mismatches", opts.MaxMismatch)
		log.Printf("read %d primers from %q", len(primers), opts.PrimerFile)
		for _, p := range primers {
			log.Printf("primer %s: %s", p.ID, p.Seq)
		}
	}

	inFile, err := os.Open(opts.InputFastq)
	if err != nil {
		return stats, err
	}
	defer inFile.Close()

	reader, closeReader, err := openFastq(inFile)
	if err != nil {
		return stats, err
	}
	defer closeReader()

	var fastqWriter *bufio.Writer
	if opts.OutputFastq != "" {
		outFile, err := os.Create(opts.OutputFastq)
		if err != nil {
			return stats, err
		}
		defer outFile.Close()
		if strings.HasSuffix(opts.OutputFastq, ".gz") {
			gw := pgzip.NewWriter(outFile)
			defer gw.Close()
			fastqWriter = bufio.NewWriter(gw)
		} else {
			fastqWriter = bufio.NewWriter(outFile)
		}
	}
	mapWriter := bufio.NewWriter(mapOut)

	resultsChan := make(chan scanResult, 1000)
	doneChan := make(chan struct{})

	var wg sync.WaitGroup

	go writeResults(fastqWriter, mapWriter, opts.UMILength, resultsChan, doneChan, &stats.AcceptedReads)

	const batchSize = 10000
	scanner := bufio.NewScanner(reader)
	reads := make([]*FastqRead, 0, batchSize)

	for scanner.Scan() {
		header := scanner.Text()
		if !strings.HasPrefix(header, "@") {
			return stats, fmt.Errorf("invalid fastq file: expected '@' at the beginning of header line, got: %s", header)
		}

		scanner.Scan()
		sequence := scanner.Text()

		scanner.Scan()
		plus := scanner.Text()
		if !strings.HasPrefix(plus, "+") {
			return stats, fmt.Errorf("invalid fastq file: expected '+' line, got: %s", plus)
		}

		scanner.Scan()
		quality := scanner.Text()
		if len(sequence) != len(quality) {
			return stats, fmt.Errorf("invalid fastq file: sequence and quality strings must have the same length, got: %d and %d", len(sequence), len(quality))
		}

		reads = append(reads, &FastqRead{
			Header:   header,
			Sequence: sequence,
			Quality:  quality,
		})
		stats.TotalReads++

		if len(reads) == batchSize {
			wg.Add(1)
			go processBatch(reads, primers, params, opts.ReturnAll, opts.Verbose, resultsChan, &wg, &stats)
			reads = make([]*FastqRead, 0, batchSize)
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("error reading file: %v", err)
	}

	if len(reads) > 0 {
		wg.Add(1)
		go processBatch(reads, primers, params, opts.ReturnAll, opts.Verbose, resultsChan, &wg, &stats)
	}

	wg.Wait()
	close(resultsChan)

	<-doneChan

	return stats, nil
}
