// Package filestore implements the key-value backend as a single local file:
// a fixed header followed by an lz4-compressed MessagePack map of keys to values.
package filestore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/couchcryptid/wildfire-watch-service/internal/kvstore"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MagicBytes identify the file format.
	MagicBytes = "WWKV"
	// FormatVersion is the current on-disk version.
	FormatVersion = 1

	flagUncompressed uint8 = 1 << 0
)

// fileHeader precedes the compressed payload.
type fileHeader struct {
	Magic    [4]byte
	Version  uint8
	Flags    uint8
	Reserved [2]byte
	RawSize  uint32 // uncompressed payload length
}

// Store keeps every key in memory and rewrites the whole file on each Put.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string][]byte
}

var _ kvstore.Backend = (*Store)(nil)

// Open loads path, creating parent directories. A missing file is an empty store.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	s := &Store{path: path, data: make(map[string][]byte)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, kvstore.ErrKeyNotFound
	}
	return slices.Clone(value), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data[key]
	s.data[key] = slices.Clone(value)
	if err := s.saveLocked(); err != nil {
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// Ping checks that the data directory is still there.
func (s *Store) Ping(context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Path returns the configured file path.
func (s *Store) Path() string { return s.path }

func (s *Store) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()

	header, err := readHeader(f)
	if err != nil {
		return err
	}
	compressed, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}
	raw := compressed
	if header.Flags&flagUncompressed == 0 {
		raw = make([]byte, header.RawSize)
		n, err := lz4.UncompressBlock(compressed, raw)
		if err != nil {
			return fmt.Errorf("decompress store file: %w", err)
		}
		raw = raw[:n]
	}
	if err := msgpack.Unmarshal(raw, &s.data); err != nil {
		return fmt.Errorf("decode store file: %w", err)
	}
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	return nil
}

// saveLocked writes to a temp file and renames it over the store file.
func (s *Store) saveLocked() error {
	raw, err := msgpack.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(raw, compressed, hashTable[:])
	if err != nil {
		return fmt.Errorf("compress store file: %w", err)
	}
	payload, flags := compressed[:n], uint8(0)
	if n == 0 {
		// lz4 reports incompressible input as 0 bytes written.
		payload, flags = raw, flagUncompressed
	}

	var buf bytes.Buffer
	if err := writeHeader(&buf, flags, uint32(len(raw))); err != nil {
		return err
	}
	buf.Write(payload)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func writeHeader(w io.Writer, flags uint8, rawSize uint32) error {
	h := fileHeader{
		Magic:   [4]byte{MagicBytes[0], MagicBytes[1], MagicBytes[2], MagicBytes[3]},
		Version: FormatVersion,
		Flags:   flags,
		RawSize: rawSize,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func readHeader(r io.Reader) (fileHeader, error) {
	var h fileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if string(h.Magic[:]) != MagicBytes {
		return h, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(h.Magic[:]))
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("unsupported file version: %d", h.Version)
	}
	return h, nil
}
