package enrich

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
)

// MockupWriter persists a generated mockup image and returns its path.
type MockupWriter interface {
	WriteMockup(companyName string, png []byte) (string, error)
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// MockupFileName returns "{sanitized}_mockup_{unixMillis}.png" where every
// character outside [A-Za-z0-9] in the company name becomes "_".
func MockupFileName(companyName string, at time.Time) string {
	return fmt.Sprintf("%s_mockup_%d.png", unsafeFileChars.ReplaceAllString(companyName, "_"), at.UnixMilli())
}

// DirMockupWriter writes mockups into a directory, creating it on demand.
type DirMockupWriter struct {
	Dir string
	now func() time.Time
}

// NewDirMockupWriter creates a writer rooted at dir.
func NewDirMockupWriter(dir string) *DirMockupWriter {
	return &DirMockupWriter{Dir: dir, now: time.Now}
}

func (w *DirMockupWriter) WriteMockup(companyName string, png []byte) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", eris.Wrap(err, "enrich: create mockups dir")
	}
	path := filepath.Join(w.Dir, MockupFileName(companyName, w.now()))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", eris.Wrap(err, "enrich: write mockup")
	}
	return path, nil
}
