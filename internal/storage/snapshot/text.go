package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yndnr/minidb-go/internal/core/domain"
)

// maxTextLine bounds a single line of a text image.
const maxTextLine = 16 << 20

// textCodec reads and writes "key value" lines.
type textCodec struct{}

func (textCodec) write(path string, records []domain.Record) (*Info, error) {
	size, err := writeFile(path, func(f *os.File) error {
		bw := bufio.NewWriter(f)
		for _, r := range records {
			if _, err := fmt.Fprintf(bw, "%s %s\n", r.Key, r.Value); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
		return bw.Flush()
	})
	if err != nil {
		return nil, err
	}
	return &Info{Size: size, CreatedAt: time.Now()}, nil
}

func (textCodec) read(path string) ([]domain.Record, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: open: %w", err)
	}
	defer f.Close()

	var records []domain.Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxTextLine)

	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, nil, corrupt("line %d: want 2 fields, got %d", line, len(fields))
		}
		records = append(records, domain.Record{Key: fields[0], Value: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, corrupt("line %d: %v", line+1, err)
	}

	var mtime time.Time
	if st, err := f.Stat(); err == nil {
		mtime = st.ModTime()
	}
	return records, &Info{CreatedAt: mtime}, nil
}
