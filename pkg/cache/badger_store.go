package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"course-archiver/pkg/log"
	"course-archiver/pkg/utils"
)

const (
	metaKeyPrefix = "obj:"    // Prefix for object metadata keys in DB
	objectsDir    = "objects" // Subdirectory within cacheDir for object payloads
	metaDBDir     = "meta_db" // Subdirectory within cacheDir for Badger DB files
)

// BadgerStore implements ObjectStore on local disk: object payloads as plain
// files, metadata in BadgerDB.
type BadgerStore struct {
	db      *badger.DB
	baseDir string
	log     *logrus.Entry
}

// storedMeta is the on-disk metadata record: the matchable Meta plus a
// payload checksum for integrity verification on download.
type storedMeta struct {
	Meta
	Checksum string `json:"sha256,omitempty"`
}

// NewBadgerStore opens (or creates) an object store rooted at cacheDir.
func NewBadgerStore(cacheDir string, logger *logrus.Entry) (*BadgerStore, error) {
	objPath := filepath.Join(cacheDir, objectsDir)
	if err := os.MkdirAll(objPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create cache directory %s: %w", utils.ErrFilesystem, objPath, err)
	}

	dbPath := filepath.Join(cacheDir, metaDBDir)
	logger.Infof("Initializing optimization cache at: %s", cacheDir)

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrCache, dbPath, err)
	}

	return &BadgerStore{db: db, baseDir: cacheDir, log: logger}, nil
}

// HasObject implements the ObjectStore interface
func (s *BadgerStore) HasObject(key string, want *Meta) (bool, error) {
	var stored *Meta
	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get([]byte(metaKeyPrefix + key))
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting meta for key '%s': %w", utils.ErrCache, key, errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded storedMeta
			if errJson := json.Unmarshal(val, &decoded); errJson != nil {
				s.log.Warnf("Failed to unmarshal cache meta for key '%s': %v. Treating as absent.", key, errJson)
				return nil
			}
			stored = &decoded.Meta
			return nil
		})
	})
	if errView != nil {
		return false, errView
	}
	if stored == nil || !stored.Matches(want) {
		return false, nil
	}
	// Meta without a payload on disk is a stale entry, not a hit.
	if _, err := os.Stat(s.objectPath(key)); err != nil {
		if os.IsNotExist(err) {
			s.log.Warnf("Cache meta for key '%s' has no payload, treating as miss", key)
			return false, nil
		}
		return false, fmt.Errorf("%w: stat payload for key '%s': %w", utils.ErrCache, key, err)
	}
	return true, nil
}

// DownloadFile implements the ObjectStore interface
func (s *BadgerStore) DownloadFile(key, destPath string) error {
	src, err := os.Open(s.objectPath(key))
	if err != nil {
		return fmt.Errorf("%w: open payload for key '%s': %w", utils.ErrCache, key, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", utils.ErrFilesystem, destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: copy payload for key '%s' to %s: %w", utils.ErrCache, key, destPath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", utils.ErrFilesystem, destPath, err)
	}

	if want := s.storedChecksum(key); want != "" {
		got, err := utils.CalculateFileSHA256(destPath)
		if err != nil {
			return fmt.Errorf("%w: checksum payload for key '%s': %w", utils.ErrCache, key, err)
		}
		if got != want {
			os.Remove(destPath)
			return fmt.Errorf("%w: payload checksum mismatch for key '%s'", utils.ErrCache, key)
		}
	}
	s.log.Debugf("Cache hit served for key '%s'", key)
	return nil
}

// storedChecksum returns the recorded payload checksum for key, or "" when
// none is recorded.
func (s *BadgerStore) storedChecksum(key string) string {
	var checksum string
	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get([]byte(metaKeyPrefix + key))
		if errGet != nil {
			return errGet
		}
		return item.Value(func(val []byte) error {
			var decoded storedMeta
			if errJson := json.Unmarshal(val, &decoded); errJson == nil {
				checksum = decoded.Checksum
			}
			return nil
		})
	})
	if err != nil {
		return ""
	}
	return checksum
}

// UploadFile implements the ObjectStore interface
func (s *BadgerStore) UploadFile(srcPath, key string, meta *Meta) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", utils.ErrFilesystem, srcPath, err)
	}
	defer src.Close()

	objPath := s.objectPath(key)
	tmpPath := objPath + ".tmp"
	dst, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: create payload for key '%s': %w", utils.ErrCache, key, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write payload for key '%s': %w", utils.ErrCache, key, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close payload for key '%s': %w", utils.ErrCache, key, err)
	}
	if err := os.Rename(tmpPath, objPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: finalize payload for key '%s': %w", utils.ErrCache, key, err)
	}

	record := storedMeta{Meta: *meta}
	if sum, sumErr := utils.CalculateFileSHA256(objPath); sumErr == nil {
		record.Checksum = sum
	} else {
		s.log.Warnf("Cannot checksum payload for key '%s': %v", key, sumErr)
	}
	metaBytes, errJson := json.Marshal(&record)
	if errJson != nil {
		return fmt.Errorf("%w: failed to marshal meta for key '%s': %w", utils.ErrParsing, key, errJson)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(metaKeyPrefix+key), metaBytes))
	})
	if err != nil {
		return fmt.Errorf("%w: failed setting meta for key '%s': %w", utils.ErrCache, key, err)
	}

	s.log.Debugf("Stored optimized object under key '%s'", key)
	return nil
}

// Close implements the ObjectStore interface
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) objectPath(key string) string {
	return filepath.Join(s.baseDir, objectsDir, utils.URLDigest(key))
}
