package main

import "fmt"

// Primer is a known fixed sequence expected to immediately follow the UMI.
// The ID is carried through to the mapping output.
type Primer struct {
	ID  string
	Seq string
}

// ScanParams holds the per-run scan configuration.
type ScanParams struct {
	UMILength   int // presumed length of the UMI at the read start
	MaxOffset   int // maximum number of leading bases before the UMI
	MaxMismatch int // inclusive mismatch threshold for a primer to qualify
}

func (p ScanParams) validate() error {
	if p.UMILength < 0 {
		return fmt.Errorf("UMI length must be >= 0, got %d", p.UMILength)
	}
	if p.MaxOffset < 0 {
		return fmt.Errorf("max offset must be >= 0, got %d", p.MaxOffset)
	}
	if p.MaxMismatch < 0 {
		return fmt.Errorf("max mismatch must be >= 0, got %d", p.MaxMismatch)
	}
	return nil
}

type RejectReason int

const (
	NoPrimerMatch RejectReason = iota
	AmbiguousMatch
	ReadTooShort
)

func (r RejectReason) String() string {
	switch r {
	case NoPrimerMatch:
		return "no primer match"
	case AmbiguousMatch:
		return "ambiguous match"
	case ReadTooShort:
		return "read too short"
	}
	return "unknown"
}

// ClipDecision is the outcome of scanning one read. When Accepted, Boundary
// is the index at which the retained sequence (primer onward) begins.
type ClipDecision struct {
	Accepted   bool
	Boundary   int
	Offset     int
	PrimerID   string
	Mismatches int
	Reason     RejectReason
}

// baseMatch compares one primer base against one read base. Reads may be
// lower case; an N in the primer matches any read base.
func baseMatch(p, r byte) bool {
	if p == 'N' {
		return true
	}
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	return p == r
}

// mismatchScore counts the positions where the primer differs from the
// window of seq starting at start. ok is false when the window would run
// past the end of the read, in which case the primer cannot be compared.
func mismatchScore(primer, seq string, start int) (score int, ok bool) {
	if start+len(primer) > len(seq) {
		return 0, false
	}
	for i := 0; i < len(primer); i++ {
		if !baseMatch(primer[i], seq[start+i]) {
			score++
		}
	}
	return score, true
}

// scanRead locates the primer in seq and returns the clip decision. Offsets
// are tried in ascending order; at each offset every primer is scored at the
// window starting offset+UMILength, and primers that cannot be compared or
// exceed MaxMismatch are dropped. A unique minimum among the survivors
// accepts the read at that offset. A tied minimum rejects the read as
// ambiguous without trying further offsets: two primers that fit equally
// well mean the read cannot be classified safely, so no tie-break is
// applied.
func scanRead(primers []Primer, seq string, params ScanParams) ClipDecision {
	sawWindow := false
	for offset := 0; offset <= params.MaxOffset; offset++ {
		start := offset + params.UMILength
		best := -1
		bestID := ""
		ties := 0
		for _, p := range primers {
			mm, ok := mismatchScore(p.Seq, seq, start)
			if !ok {
				continue
			}
			sawWindow = true
			if mm > params.MaxMismatch {
				continue
			}
			switch {
			case best < 0 || mm < best:
				best = mm
				bestID = p.ID
				ties = 1
			case mm == best:
				ties++
			}
		}
		if best < 0 {
			continue
		}
		if ties > 1 {
			return ClipDecision{Reason: AmbiguousMatch, Offset: offset, Mismatches: best}
		}
		return ClipDecision{
			Accepted:   true,
			Boundary:   start,
			Offset:     offset,
			PrimerID:   bestID,
			Mismatches: best,
		}
	}
	if !sawWindow {
		return ClipDecision{Reason: ReadTooShort}
	}
	return ClipDecision{Reason: NoPrimerMatch}
}
