package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yndnr/minidb-go/internal/core/domain"
	"github.com/yndnr/minidb-go/pkg/crypto/adaptive"
)

// magicBytes identify binary image files.
var magicBytes = []byte("MINIDBIM")

const (
	checksumSize  = sha256.Size
	headerVersion = 2

	// Version 1 stored keys and values as JSON strings, which cannot carry
	// invalid UTF-8.
	headerVersionText = 1

	// maxBlockSize bounds a length prefix read from disk.
	maxBlockSize = 1 << 31
)

type imageHeader struct {
	Version     int                 `json:"version"`
	CreatedAt   int64               `json:"created_at"`
	RecordCount uint64              `json:"record_count"`
	Encrypted   bool                `json:"encrypted"`
	Cipher      adaptive.CipherType `json:"cipher,omitempty"`
	Salt        []byte              `json:"salt,omitempty"`
}

// imageRecord holds raw bytes so any token survives the round trip.
type imageRecord struct {
	Key   []byte `json:"k"`
	Value []byte `json:"v"`
}

type imageRecordV1 struct {
	Key   string `json:"k"`
	Value string `json:"v"`
}

// binaryCodec implements the checksummed, optionally encrypted format.
//
// Layout:
//
//	magic(8) | hdrLen(4) | header JSON | dataLen(4) | data | sha256(32)
//
// The checksum covers everything before it. When encrypted, data is the
// AEAD-sealed record JSON with the header JSON as additional data.
type binaryCodec struct {
	passphrase []byte
	cipher     adaptive.CipherType
}

func (c binaryCodec) write(path string, records []domain.Record) (*Info, error) {
	now := time.Now()
	hdr := imageHeader{
		Version:     headerVersion,
		CreatedAt:   now.UnixMilli(),
		RecordCount: uint64(len(records)),
	}

	encoded := make([]imageRecord, len(records))
	for i, r := range records {
		encoded[i] = imageRecord{Key: []byte(r.Key), Value: []byte(r.Value)}
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}

	var aead adaptive.Cipher
	if len(c.passphrase) > 0 {
		salt, err := adaptive.NewSalt()
		if err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		aead, err = adaptive.NewWithType(adaptive.DeriveKey(c.passphrase, salt), c.cipher)
		if err != nil {
			return nil, err
		}
		hdr.Encrypted = true
		hdr.Cipher = aead.Type()
		hdr.Salt = salt
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}

	if aead != nil {
		data, err = aead.Encrypt(data, hdrJSON)
		if err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}
	}

	size, err := writeFile(path, func(f *os.File) error {
		bw := bufio.NewWriter(f)
		hash := sha256.New()
		w := io.MultiWriter(bw, hash)

		if _, err := w.Write(magicBytes); err != nil {
			return fmt.Errorf("write magic: %w", err)
		}
		if err := writeBlock(w, hdrJSON); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := writeBlock(w, data); err != nil {
			return fmt.Errorf("write data: %w", err)
		}
		// Trailer is not part of the hash.
		if _, err := bw.Write(hash.Sum(nil)); err != nil {
			return fmt.Errorf("write checksum: %w", err)
		}
		return bw.Flush()
	})
	if err != nil {
		return nil, err
	}

	return &Info{Size: size, Encrypted: hdr.Encrypted, CreatedAt: now}, nil
}

func (c binaryCodec) read(path string) ([]domain.Record, *Info, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read: %w", err)
	}
	if len(raw) < len(magicBytes)+8+checksumSize {
		return nil, nil, corrupt("image truncated (%d bytes)", len(raw))
	}

	body, trailer := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return nil, nil, corrupt("checksum mismatch")
	}
	if !bytes.HasPrefix(body, magicBytes) {
		return nil, nil, corrupt("invalid magic bytes")
	}

	r := bytes.NewReader(body[len(magicBytes):])
	hdrJSON, err := readBlock(r)
	if err != nil {
		return nil, nil, corrupt("header: %v", err)
	}
	var hdr imageHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, corrupt("header: %v", err)
	}
	if hdr.Version != headerVersion && hdr.Version != headerVersionText {
		return nil, nil, corrupt("unsupported image version %d", hdr.Version)
	}

	data, err := readBlock(r)
	if err != nil {
		return nil, nil, corrupt("data: %v", err)
	}
	if r.Len() != 0 {
		return nil, nil, corrupt("%d trailing bytes after data block", r.Len())
	}

	if hdr.Encrypted {
		if len(c.passphrase) == 0 {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrImageCorrupt,
				domain.ErrImageDecrypt.WithDetails("image is encrypted and no key is configured"))
		}
		aead, err := adaptive.NewWithType(adaptive.DeriveKey(c.passphrase, hdr.Salt), hdr.Cipher)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrImageCorrupt, domain.ErrImageDecrypt.Wrap(err))
		}
		data, err = aead.Decrypt(data, hdrJSON)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrImageCorrupt, domain.ErrImageDecrypt.Wrap(err))
		}
	}

	records, err := decodeRecords(hdr.Version, data)
	if err != nil {
		return nil, nil, corrupt("records: %v", err)
	}
	if uint64(len(records)) != hdr.RecordCount {
		return nil, nil, corrupt("record count %d, header says %d", len(records), hdr.RecordCount)
	}
	for i, rec := range records {
		if !domain.ValidToken(rec.Key) || !domain.ValidToken(rec.Value) {
			return nil, nil, corrupt("record %d is not a valid key/value pair", i)
		}
	}

	return records, &Info{
		Encrypted: hdr.Encrypted,
		CreatedAt: time.UnixMilli(hdr.CreatedAt),
	}, nil
}

func decodeRecords(version int, data []byte) ([]domain.Record, error) {
	if version == headerVersionText {
		var decoded []imageRecordV1
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, err
		}
		records := make([]domain.Record, len(decoded))
		for i, rec := range decoded {
			records[i] = domain.Record{Key: rec.Key, Value: rec.Value}
		}
		return records, nil
	}

	var decoded []imageRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	records := make([]domain.Record, len(decoded))
	for i, rec := range decoded {
		records[i] = domain.Record{Key: string(rec.Key), Value: string(rec.Value)}
	}
	return records, nil
}

func writeBlock(w io.Writer, b []byte) error {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	if _, err := w.Write(n[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBlock(r *bytes.Reader) ([]byte, error) {
	var n [4]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, fmt.Errorf("length prefix: %w", err)
	}
	size := int64(binary.BigEndian.Uint32(n[:]))
	if size == 0 || size >= maxBlockSize || size > int64(r.Len()) {
		return nil, fmt.Errorf("invalid block length %d", size)
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
