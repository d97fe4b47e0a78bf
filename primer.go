package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadPrimers reads primers from a FASTA file, preserving file order.
// Multi-line records are concatenated and sequences are upper-cased.
func LoadPrimers(path string) ([]Primer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var primers []Primer
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			primers = append(primers, Primer{ID: strings.TrimSpace(line[1:])})
			continue
		}
		if len(primers) == 0 {
			return nil, fmt.Errorf("invalid primer file %s: sequence line before first header", path)
		}
		primers[len(primers)-1].Seq += strings.ToUpper(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading primer file %s: %v", path, err)
	}

	if len(primers) == 0 {
		return nil, fmt.Errorf("no primers found in %s", path)
	}
	for _, p := range primers {
		if p.Seq == "" {
			return nil, fmt.Errorf("primer %q in %s has an empty sequence", p.ID, path)
		}
	}
	return primers, nil
}
