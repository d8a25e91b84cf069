package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const maxDumpSuffix = 1000

// Dumper writes raw payloads to disk as test fixtures.
type Dumper struct {
	dir string
	now func() time.Time
}

func NewDumper(dir string) *Dumper {
	return &Dumper{dir: dir, now: time.Now}
}

// Dump writes data to packet_YYYYMMDD_HHMMSS.bin, adding _N when a file with
// that name already exists. It returns the path written.
func (d *Dumper) Dump(data []byte) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create dump dir: %w", err)
	}
	stamp := d.now().Format("20060102_150405")
	for n := 0; n < maxDumpSuffix; n++ {
		name := "packet_" + stamp + ".bin"
		if n > 0 {
			name = fmt.Sprintf("packet_%s_%d.bin", stamp, n)
		}
		path := filepath.Join(d.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create dump: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write dump: %w", err)
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("too many dumps for %s", stamp)
}
