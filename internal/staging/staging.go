// Package staging writes uploaded documents to private temporary directories.
//
// Every staged file lives alone in a fresh directory created with os.MkdirTemp,
// so concurrent uploads never share a path even when their names match.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

const (
	// Extension is the required upload extension.
	Extension = ".pdf"

	// FallbackName replaces client filenames that fail sanitisation.
	FallbackName = "upload.pdf"

	// DirPrefix prefixes every staging directory.
	DirPrefix = "pageindex_"

	maxNameBytes = 255
)

var (
	// ErrInvalidInput marks problems with the client's upload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaging marks filesystem failures while staging.
	ErrStaging = errors.New("staging failed")
)

// ExtensionMessage is the client-facing message for a wrong extension.
var ExtensionMessage = fmt.Sprintf("File must have a %s extension", Extension)

// InputError is a client error whose message is safe to return verbatim.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrInvalidInput) match any InputError.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// HasPDFExtension reports whether name ends in .pdf, ignoring case.
func HasPDFExtension(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Extension)
}

// ValidateName returns an InputError when name is not a PDF filename.
func ValidateName(name string) error {
	if !HasPDFExtension(name) {
		return &InputError{Message: ExtensionMessage}
	}
	return nil
}

// SafeName returns name if it only contains letters, numbers, '.', '_', '-'
// and spaces, otherwise FallbackName. The result always ends in .pdf.
func SafeName(name string) string {
	safe := name
	if !isSafe(name) {
		safe = FallbackName
	}
	if !HasPDFExtension(safe) {
		safe += Extension
	}
	return safe
}

func isSafe(name string) bool {
	if name == "" || len(name) > maxNameBytes {
		return false
	}
	// A name of only dots would resolve to the directory itself or its parent.
	if strings.Trim(name, ".") == "" {
		return false
	}
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r):
		case r == '.', r == '_', r == '-', r == ' ':
		default:
			return false
		}
	}
	return true
}

// File is a staged upload.
type File struct {
	dir  string
	path string
	size int64

	once sync.Once
	err  error
}

// Stage creates a new directory under root (os.TempDir() when empty) and copies
// r into it as SafeName(name). On error nothing is left on disk.
func Stage(root, name string, r io.Reader) (*File, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to create staging root: %w", ErrStaging, err)
		}
	}

	dir, err := os.MkdirTemp(root, DirPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp dir: %w", ErrStaging, err)
	}

	f := &File{dir: dir, path: filepath.Join(dir, SafeName(name))}
	if err := f.write(r); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return f, nil
}

func (f *File) write(r io.Reader) error {
	out, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: failed to create file: %w", ErrStaging, err)
	}

	src := &readTracker{r: r}
	n, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		// Body read errors (size limit, client abort) are returned unwrapped
		// so the caller can classify them.
		if src.err != nil {
			return fmt.Errorf("failed to read upload: %w", src.err)
		}
		return fmt.Errorf("%w: failed to write file: %w", ErrStaging, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: failed to close file: %w", ErrStaging, err)
	}
	f.size = n
	return nil
}

// readTracker records the first non-EOF read error.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

// Path returns the staged file path.
func (f *File) Path() string { return f.path }

// Dir returns the private directory containing the file.
func (f *File) Dir() string { return f.dir }

// Name returns the sanitised file name.
func (f *File) Name() string { return filepath.Base(f.path) }

// Size returns the number of bytes written.
func (f *File) Size() int64 { return f.size }

// Cleanup removes the file and its directory. It is safe to call more than
// once; later calls return the first call's result.
func (f *File) Cleanup() error {
	f.once.Do(func() {
		if err := os.RemoveAll(f.dir); err != nil {
			f.err = fmt.Errorf("failed to remove %s: %w", f.dir, err)
		}
	})
	return f.err
}
