package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	primerFile  = flag.String("p", "", "Primer FASTA file (required)")
	inputFastq  = flag.String("i", "", "Input FASTQ file, plain or gzip (required)")
	outputFastq = flag.String("f", "", "Output FASTQ file, compressed if it ends in .gz (optional)")
	umiLength   = flag.Int("n", 6, "Length of the UMI sequence")
	maxOffset   = flag.Int("o", 0, "Maximum offset before the UMI")
	maxMismatch = flag.Int("m", 1, "Maximum permissible primer mismatches")
	returnAll   = flag.Bool("a", false, "Return all sequences, even if no primer was identified")
	verbose     = flag.Bool("v", false, "Verbose per-read logging")
)

// The summary goes to stderr so it never mixes with the mapping rows on
// stdout.
func printSummary(stats Stats, elapsed time.Duration) {
	fmt.Fprintf(os.Stderr, "\nTotal reads: %s\n", Comma(stats.TotalReads))
	percentage := 0.0
	if stats.TotalReads > 0 {
		percentage = float64(stats.AcceptedReads) / float64(stats.TotalReads) * 100
	}
	color.New(color.FgHiGreen).Fprintf(color.Error, "Clipped reads: %s (%.2f%%)\n", Comma(stats.AcceptedReads), percentage)
	color.New(color.FgHiMagenta).Fprintf(color.Error, "\nNo primer match count: %s\n", Comma(stats.NoPrimerMatch))
	color.New(color.FgHiMagenta).Fprintf(color.Error, "Ambiguous match count: %s\n", Comma(stats.Ambiguous))
	color.New(color.FgHiMagenta).Fprintf(color.Error, "Read too short count: %s\n", Comma(stats.TooShort))
	fmt.Fprintf(os.Stderr, "\nApplication execution time: %s\n", elapsed)
}

func main() {
	flag.Parse()

	if *primerFile == "" || *inputFastq == "" {
		fmt.Println("Missing required arguments")
		flag.Usage()
		return
	}

	opts := Options{
		PrimerFile:  *primerFile,
		InputFastq:  *inputFastq,
		OutputFastq: *outputFastq,
		UMILength:   *umiLength,
		MaxOffset:   *maxOffset,
		MaxMismatch: *maxMismatch,
		ReturnAll:   *returnAll,
		Verbose:     *verbose,
	}

	startTime := time.Now()
	stats, err := ProcessReads(opts, os.Stdout)
	if err != nil {
		log.Fatalf("Error processing reads: %v", err)
	}
	printSummary(stats, time.Since(startTime))
}
