// Package preflight runs advisory checks on an interchange file before it
// reaches the parser. A failing check is reported to the caller; it never
// prevents a parse.
package preflight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxBytes is the default size ceiling, 50 MB.
const DefaultMaxBytes int64 = 50 << 20

// Extension is the expected file extension, compared case-insensitively.
const Extension = ".bc3"

// headSize is how much of the file the signature check sees.
const headSize = 4096

var (
	// ErrExtension is returned by the extension check.
	ErrExtension = errors.New("unexpected file extension")
	// ErrTooLarge is returned by the size check.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrNoRecords is returned when the file head contains no record mark.
	ErrNoRecords = errors.New("no record mark found")
)

// File describes the input under inspection. Head holds the leading bytes
// of the content; it may be shorter than the file.
type File struct {
	Name string
	Size int64
	Head []byte
}

// FromBytes describes an in-memory upload.
func FromBytes(name string, data []byte) File {
	head := data
	if len(head) > headSize {
		head = head[:headSize]
	}
	return File{Name: name, Size: int64(len(data)), Head: head}
}

// FromPath stats path and reads its head.
func FromPath(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("preflight: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return File{}, fmt.Errorf("preflight: stat %s: %w", path, err)
	}
	head := make([]byte, headSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("preflight: read %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Size: info.Size(), Head: head[:n]}, nil
}

// Check is a single named check.
type Check struct {
	Name string
	Fn   func(ctx context.Context, f File) (output string, err error)
}

// Result contains the outcome of every check.
type Result struct {
	Passed bool          `json:"passed"` // true if all checks passed
	Checks []CheckResult `json:"checks"` // individual check outcomes, in chain order
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Name    string        `json:"name"`             // "extension", "size", "signature"
	Passed  bool          `json:"passed"`           // true if this check passed
	Output  string        `json:"output,omitempty"` // explanation on failure
	Elapsed time.Duration `json:"elapsedNs"`        // wall-clock time for this check
}

// FirstFailure returns the first failing check, or nil if all passed.
func (r *Result) FirstFailure() *CheckResult {
	for i := range r.Checks {
		if !r.Checks[i].Passed {
			return &r.Checks[i]
		}
	}
	return nil
}

// Chain runs every check in order. Unlike a gate, it does not stop at the
// first failure: the caller gets the full report.
type Chain struct {
	Checks []Check
}

// Run executes each check. A non-nil error is only returned when ctx is
// cancelled; check failures are captured in the Result.
func (c *Chain) Run(ctx context.Context, f File) (*Result, error) {
	result := &Result{Passed: true}
	for _, check := range c.Checks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("preflight: cancelled: %w", err)
		}
		start := time.Now()
		output, err := check.Fn(ctx, f)
		cr := CheckResult{Name: check.Name, Passed: err == nil, Output: output, Elapsed: time.Since(start)}
		if err != nil {
			result.Passed = false
			if cr.Output == "" {
				cr.Output = err.Error()
			}
		}
		result.Checks = append(result.Checks, cr)
	}
	return result, nil
}

// DefaultChain returns the standard checks: extension, size against
// maxBytes (DefaultMaxBytes when not positive), and record signature.
func DefaultChain(maxBytes int64) *Chain {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Chain{Checks: []Check{
		{Name: "extension", Fn: extensionCheck},
		{Name: "size", Fn: sizeCheck(maxBytes)},
		{Name: "signature", Fn: signatureCheck},
	}}
}

func extensionCheck(_ context.Context, f File) (string, error) {
	ext := filepath.Ext(f.Name)
	if !strings.EqualFold(ext, Extension) {
		return fmt.Sprintf("%s: extension %q, want %s", f.Name, ext, Extension), ErrExtension
	}
	return "", nil
}

func sizeCheck(maxBytes int64) func(context.Context, File) (string, error) {
	return func(_ context.Context, f File) (string, error) {
		if f.Size > maxBytes {
			return fmt.Sprintf("%s: %d bytes, limit %d", f.Name, f.Size, maxBytes), ErrTooLarge
		}
		return "", nil
	}
}

// signatureCheck looks for a record mark at the start of any line in the
// head. The mark is ASCII, so no decoding is needed.
func signatureCheck(_ context.Context, f File) (string, error) {
	for line := range bytes.Lines(f.Head) {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("~")) {
			return "", nil
		}
	}
	return fmt.Sprintf("%s: no line starts with ~", f.Name), ErrNoRecords
}
