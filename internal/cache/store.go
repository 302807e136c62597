package cache

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"baaccli/internal/config"
	"baaccli/internal/dataprocessing"
	apperrors "baaccli/internal/errors"
	"baaccli/internal/files"
)

// snapshot is the on-disk form. The signature is stored alongside the data
// so a snapshot paired with a foreign sidecar is rejected.
type snapshot struct {
	Signature string
	Dataset   dataprocessing.Dataset
}

// Store reads and writes the dataset snapshot and its signature sidecar in
// one cache directory. A single writer is assumed.
type Store struct {
	files        *files.Manager
	logger       *slog.Logger
	snapshotName string
	sigName      string
}

// NewStore creates a store over the cache directory.
func NewStore(cacheDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		files:        files.NewManager(cacheDir, logger),
		logger:       logger,
		snapshotName: config.SnapshotFileName,
		sigName:      config.SignatureFileName,
	}
}

// SnapshotPath returns the snapshot file path.
func (s *Store) SnapshotPath() string {
	return s.files.Path(s.snapshotName)
}

// SignaturePath returns the sidecar path.
func (s *Store) SignaturePath() string {
	return s.files.Path(s.sigName)
}

// StoredSignature returns the sidecar content, empty when absent.
func (s *Store) StoredSignature() (string, error) {
	data, err := s.files.ReadFile(s.sigName)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Lookup returns the cached dataset when the stored signature equals sig.
// A mismatch, a missing snapshot or an unreadable one is a miss; the error
// explains why and has type CACHE_INVALID.
func (s *Store) Lookup(sig Signature) (*dataprocessing.Dataset, error) {
	stored, err := s.StoredSignature()
	if err != nil {
		return nil, apperrors.NewCacheInvalidError("read signature", err)
	}
	if stored == "" {
		return nil, apperrors.NewCacheInvalidError("no stored signature", nil)
	}
	if stored != sig.Hash {
		return nil, apperrors.NewCacheInvalidError("signature mismatch", nil).
			WithContext("stored", stored).
			WithContext("current", sig.Hash)
	}

	f, err := s.files.Open(s.snapshotName)
	if err != nil {
		return nil, apperrors.NewCacheInvalidError("open snapshot", err)
	}
	defer f.Close()

	snap, err := decode(f)
	if err != nil {
		return nil, apperrors.NewCacheInvalidError("decode snapshot", err)
	}
	if snap.Signature != sig.Hash {
		return nil, apperrors.NewCacheInvalidError("snapshot belongs to another signature", nil)
	}
	return &snap.Dataset, nil
}

// Save writes the snapshot then the sidecar, each atomically. A crash between
// the two leaves the old sidecar, which no longer matches the new snapshot's
// embedded signature, so the next lookup misses.
func (s *Store) Save(sig Signature, ds *dataprocessing.Dataset) error {
	if ds == nil {
		return fmt.Errorf("nil dataset")
	}
	if err := s.files.EnsureDirectory(); err != nil {
		return apperrors.NewStorageError("create cache directory", err)
	}

	err := s.files.WriteFileAtomic(s.snapshotName, func(w io.Writer) error {
		return encode(w, snapshot{Signature: sig.Hash, Dataset: *ds})
	})
	if err != nil {
		return apperrors.NewStorageError("write snapshot", err)
	}
	if err := s.files.WriteFile(s.sigName, []byte(sig.Hash+"\n")); err != nil {
		return apperrors.NewStorageError("write signature", err)
	}

	s.logger.Info("cache_saved",
		slog.String("path", s.SnapshotPath()),
		slog.String("signature", sig.Hash),
		slog.Int("accidents", ds.Accidents.Len()))
	return nil
}

// Invalidate removes both artifacts.
func (s *Store) Invalidate() error {
	if err := s.files.DeleteFile(s.sigName); err != nil {
		return err
	}
	return s.files.DeleteFile(s.snapshotName)
}

func encode(w io.Writer, snap snapshot) error {
	bw := bufio.NewWriter(w)
	zw := gzip.NewWriter(bw)
	if err := gob.NewEncoder(zw).Encode(snap); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func decode(r io.Reader) (snapshot, error) {
	var snap snapshot
	zr, err := gzip.NewReader(bufio.NewReader(r))
	if err != nil {
		return snap, err
	}
	defer zr.Close()
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// Fingerprint returns the gob encoding of a dataset, for comparing two
// loads byte for byte.
func Fingerprint(ds *dataprocessing.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
