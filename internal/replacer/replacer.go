// Package replacer implements a streaming multi-string replacer used to
// censor secrets on their way to an output sink.
package replacer

import (
	"io"
	"slices"
	"sync"
)

// Replacer scans a byte stream for a set of needles and rewrites each match
// through a replacement callback before forwarding to the destination writer.
//
// The scan is deliberately a plain byte-at-a-time state machine rather than a
// high-performance multi-pattern matcher: the needle sets here are small
// (contents of a handful of credential files), and the priority is that no
// needle escapes, including needles that overlap each other or straddle two
// Write calls. Overlapping matches are merged and rewritten as a single span,
// so a longer needle can never be left half-masked by a shorter one.
type Replacer struct {
	// replacement receives the matched span of the internal buffer and
	// returns the bytes to forward in its place. It must not retain the
	// slice it is given.
	replacement func([]byte) []byte

	// Needles indexed by first byte, so each input byte consults only the
	// needles that could start at it.
	needles [256][]string

	// Guards everything below. Each Write can touch all of it.
	mu sync.Mutex

	// Censored output is forwarded here.
	dst io.Writer

	// Bytes not yet forwarded because a needle may still be completing.
	buf []byte

	// In-progress matches. Write alternates between active and next rather
	// than allocating a fresh slice per input byte.
	active, next []partial

	// Completed match spans within buf, ordered by end offset.
	spans []span
}

// partial tracks how far into one needle the stream has matched.
type partial struct {
	needle  string
	matched int
}

// span is a half-open range [from, to) within the buffer.
type span struct {
	from, to int
}

// New returns a Replacer forwarding to dst. replacement is called once per
// merged match span; to forward a span unaltered it can return its argument.
func New(dst io.Writer, needles []string, replacement func([]byte) []byte) *Replacer {
	r := &Replacer{
		replacement: replacement,
		dst:         dst,

		buf:    make([]byte, 0, 32768),
		active: make([]partial, 0, len(needles)),
		next:   make([]partial, 0, len(needles)),
		spans:  make([]span, 0, len(needles)),
	}
	r.Add(needles...)
	return r
}

// Write scans b, buffers any trailing bytes that could be the start of a
// needle, and forwards everything else with matches rewritten.
func (r *Replacer) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	base := len(r.buf)
	r.buf = append(r.buf, b...)

	for n, c := range b {
		idx := base + n

		// Advance matches already in progress.
		for _, p := range r.active {
			if p.needle[p.matched] != c {
				// Mismatch; this candidate is dead.
				continue
			}
			p.matched++
			if p.matched < len(p.needle) {
				r.next = append(r.next, p)
				continue
			}
			// Fully matched.
			r.spans = append(r.spans, span{from: idx - len(p.needle) + 1, to: idx + 1})
		}

		// Start new matches at this byte.
		for _, s := range r.needles[c] {
			if len(s) == 1 {
				r.spans = append(r.spans, span{from: idx, to: idx + 1})
				continue
			}
			r.next = append(r.next, partial{needle: s, matched: 1})
		}

		// Reuse the old active slice as the next scratch slice.
		r.active, r.next = r.next, r.active[:0]
	}

	r.spans = mergeOverlaps(r.spans)

	// Forward as much of the buffer as possible without emitting bytes that
	// an in-progress match may still claim.
	limit := len(r.buf)
	for _, p := range r.active {
		if hold := len(r.buf) - p.matched; hold < limit {
			limit = hold
		}
	}
	if err := r.flushUpTo(limit); err != nil {
		accepted := limit - base
		if accepted < 0 {
			accepted = 0
		}
		return accepted, err
	}

	return len(b), nil
}

// Flush forwards all buffered bytes. It assumes the stream has ended, so any
// in-progress matches are abandoned as non-matches.
func (r *Replacer) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active = r.active[:0]
	return r.flushUpTo(len(r.buf))
}

func (r *Replacer) flushUpTo(limit int) error {
	if limit <= 0 || len(r.buf) == 0 {
		return nil
	}

	pos := 0   // forwarded up to here
	done := -1 // index of the last span fully handled

	for i, sp := range r.spans {
		if sp.from >= limit {
			break
		}
		if sp.to > limit {
			// The span straddles the cutoff. Hold the whole span back so the
			// replacement callback sees it in one piece next flush.
			limit = sp.from
			break
		}

		if pos < sp.from {
			if _, err := r.dst.Write(r.buf[pos:sp.from]); err != nil {
				return err
			}
		}
		if repl := r.replacement(r.buf[sp.from:sp.to]); len(repl) > 0 {
			if _, err := r.dst.Write(repl); err != nil {
				return err
			}
		}
		pos = sp.to
		done = i
	}

	if pos < limit {
		if _, err := r.dst.Write(r.buf[pos:limit]); err != nil {
			return err
		}
		pos = limit
	}

	if pos >= len(r.buf) {
		// Everything went out; keep the capacity.
		r.buf = r.buf[:0]
		r.spans = r.spans[:0]
		return nil
	}

	// Retain the tail and rebase the remaining spans onto it.
	r.buf = r.buf[pos:]
	rem := r.spans[done+1:]
	for i, sp := range rem {
		r.spans[i] = span{from: sp.from - pos, to: sp.to - pos}
	}
	r.spans = r.spans[:len(rem)]
	return nil
}

// Add registers more needles. Needles added mid-stream only apply to bytes
// passed to Write afterwards; empty needles and duplicates are ignored.
func (r *Replacer) Add(needles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range needles {
		if s == "" {
			continue
		}
		if slices.Contains(r.needles[s[0]], s) {
			continue
		}
		r.needles[s[0]] = append(r.needles[s[0]], s)
	}
}

// Needles returns a snapshot of the current needle set.
func (r *Replacer) Needles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var needles []string
	for _, group := range r.needles {
		needles = append(needles, group...)
	}
	return needles
}

// mergeOverlaps combines overlapping spans in place. Spans must be ordered by
// end offset, which they are, having been appended as the scan advanced.
func mergeOverlaps(spans []span) []span {
	if len(spans) <= 1 {
		return spans
	}

	merged := spans[:1]
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.from < last.to && last.from < sp.to {
			if sp.from < last.from {
				last.from = sp.from
			}
			if sp.to > last.to {
				last.to = sp.to
			}
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}
