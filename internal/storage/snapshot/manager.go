package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/minidb-go/internal/core/domain"
	"github.com/yndnr/minidb-go/internal/telemetry/logger"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
	"github.com/yndnr/minidb-go/pkg/crypto/adaptive"
)

// Format names an image encoding.
type Format string

const (
	FormatBinary Format = "binary"
	FormatText   Format = "text"
	FormatBolt   Format = "bolt"
)

// ParseFormat validates a format name. Empty means FormatBinary.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatBinary, nil
	case FormatBinary, FormatText, FormatBolt:
		return f, nil
	default:
		return "", fmt.Errorf("snapshot: unknown format %q", s)
	}
}

// Config configures the snapshot manager.
type Config struct {
	// Path is the image file.
	Path string

	// Format is the encoding used by Save.
	Format Format

	// Passphrase enables encryption of binary images when non-empty.
	Passphrase []byte

	// Cipher selects the AEAD for new encrypted images.
	// Empty means adaptive.Preferred().
	Cipher adaptive.CipherType

	Logger  logger.Logger
	Metrics *metric.Registry
}

// Info describes a saved or loaded image.
type Info struct {
	Path      string
	Format    Format
	Records   int
	Size      int64
	Encrypted bool
	CreatedAt time.Time
}

// Manager saves and loads the image file.
type Manager struct {
	cfg    Config
	log    logger.Logger
	codecs map[Format]codec

	// Serializes saves.
	mu sync.Mutex
}

// codec writes a complete image to path and reads one back.
type codec interface {
	write(path string, records []domain.Record) (*Info, error)
	read(path string) ([]domain.Record, *Info, error)
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Path == "" {
		return nil, errors.New("snapshot: path is required")
	}
	format, err := ParseFormat(string(cfg.Format))
	if err != nil {
		return nil, err
	}
	cfg.Format = format
	if len(cfg.Passphrase) > 0 && cfg.Format != FormatBinary {
		return nil, fmt.Errorf("snapshot: encryption requires the %s format", FormatBinary)
	}
	if cfg.Cipher == "" {
		cfg.Cipher = adaptive.Preferred()
	}
	if _, err := adaptive.NewWithType(make([]byte, adaptive.KeySize), cfg.Cipher); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	return &Manager{
		cfg: cfg,
		log: logger.Or(cfg.Logger).With("component", "snapshot"),
		codecs: map[Format]codec{
			FormatBinary: binaryCodec{passphrase: cfg.Passphrase, cipher: cfg.Cipher},
			FormatText:   textCodec{},
			FormatBolt:   boltCodec{},
		},
	}, nil
}

// Path returns the image file path.
func (m *Manager) Path() string {
	return m.cfg.Path
}

// Save atomically replaces the image with records.
func (m *Manager) Save(records []domain.Record) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	info, err := m.save(records)
	m.cfg.Metrics.ObserveSnapshot("save", len(records), infoSize(info), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	m.log.Info("image saved",
		"path", info.Path,
		"format", string(info.Format),
		"records", info.Records,
		"bytes", info.Size,
		"duration", time.Since(start).String(),
	)
	return info, nil
}

func (m *Manager) save(records []domain.Record) (*Info, error) {
	dir := filepath.Dir(m.cfg.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(m.cfg.Path)+".tmp-*")
	if err != nil {
		return nil, domain.ErrImageWrite.Wrap(fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	info, err := m.codecs[m.cfg.Format].write(tmpPath, records)
	if err != nil {
		return nil, domain.ErrImageWrite.Wrap(err)
	}

	if err := os.Rename(tmpPath, m.cfg.Path); err != nil {
		return nil, domain.ErrImageWrite.Wrap(fmt.Errorf("rename: %w", err))
	}
	if err := syncDir(dir); err != nil {
		m.log.Warn("image directory sync failed", "dir", dir, "error", err)
	}

	info.Path = m.cfg.Path
	info.Format = m.cfg.Format
	info.Records = len(records)
	return info, nil
}

// Load reads the image. A missing or empty file yields no records.
// Any malformed content yields an error wrapping domain.ErrImageCorrupt.
func (m *Manager) Load() ([]domain.Record, *Info, error) {
	start := time.Now()
	records, info, err := m.load()
	m.cfg.Metrics.ObserveSnapshot("load", len(records), infoSize(info), time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}

	if info.Size == 0 {
		m.log.Info("no image found, starting empty", "path", m.cfg.Path)
	} else {
		m.log.Info("image loaded",
			"path", info.Path,
			"format", string(info.Format),
			"records", info.Records,
			"encrypted", info.Encrypted,
		)
	}
	return records, info, nil
}

func (m *Manager) load() ([]domain.Record, *Info, error) {
	st, err := os.Stat(m.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &Info{Path: m.cfg.Path}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: stat: %w", err)
	}
	if st.IsDir() {
		return nil, nil, fmt.Errorf("snapshot: %s is a directory", m.cfg.Path)
	}
	if st.Size() == 0 {
		return nil, &Info{Path: m.cfg.Path}, nil
	}

	format, err := detectFormat(m.cfg.Path)
	if err != nil {
		return nil, nil, err
	}

	records, info, err := m.codecs[format].read(m.cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	info.Path = m.cfg.Path
	info.Format = format
	info.Size = st.Size()
	info.Records = len(records)
	return records, info, nil
}

// boltMagic is boltdb's meta page magic, stored in native (little endian)
// byte order right after the 16-byte page header.
const (
	boltMagic       = 0xED0CDAED
	boltMagicOffset = 16
)

// detectFormat sniffs the leading bytes of path.
func detectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("snapshot: open: %w", err)
	}
	defer f.Close()

	head := make([]byte, boltMagicOffset+4)
	n, _ := f.Read(head)
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, magicBytes):
		return FormatBinary, nil
	case n >= boltMagicOffset+4 &&
		binary.LittleEndian.Uint32(head[boltMagicOffset:]) == boltMagic:
		return FormatBolt, nil
	default:
		return FormatText, nil
	}
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

func infoSize(info *Info) int64 {
	if info == nil {
		return -1
	}
	return info.Size
}

// corrupt builds an ErrImageCorrupt with a formatted detail.
func corrupt(format string, args ...any) error {
	return domain.ErrImageCorrupt.WithDetails(fmt.Sprintf(format, args...))
}

// writeFile truncates path, lets fn fill it and syncs it to disk.
func writeFile(path string, fn func(f *os.File) error) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return 0, fmt.Errorf("sync: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("stat: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close: %w", err)
	}
	return st.Size(), nil
}
