package outline

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket layout: one metadata bucket for document records, plus one bucket
// per document holding its block records.
const (
	bucketDocuments   = "documents"
	blockBucketPrefix = "blocks:"
)

// PropsRecord is the persisted form of descriptor properties.
type PropsRecord struct {
	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"`
}

// PortalRecord is the persisted form of a portal reference.
type PortalRecord struct {
	SourceDocID   string `json:"sourceDocId"`
	SourceBlockID string `json:"sourceBlockId"`
	SyncStatus    string `json:"syncStatus"`
}

// BlockRecord is the persisted form of one block.
type BlockRecord struct {
	ID       string        `json:"id"`
	ParentID string        `json:"parentId,omitempty"`
	ChildIDs []string      `json:"childIds"`
	Text     []byte        `json:"text"`
	Expanded bool          `json:"expanded"`
	Kind     string        `json:"kind"`
	Tags     []string      `json:"tags,omitempty"`
	Version  uint64        `json:"version"`
	Props    *PropsRecord  `json:"props,omitempty"`
	Portal   *PortalRecord `json:"portal,omitempty"`
}

// DocumentRecord is the persisted form of one document.
type DocumentRecord struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	RootIDs []string      `json:"rootIds"`
	Blocks  []BlockRecord `json:"-"`
}

// DocumentMeta summarizes a stored document.
type DocumentMeta struct {
	ID    DocumentID
	Title string
}

// Store is the persistence collaborator for documents. Implementations must
// make SaveDocument atomic per document.
type Store interface {
	SaveDocument(rec DocumentRecord) error
	LoadDocument(id DocumentID) (DocumentRecord, error)
	DeleteDocument(id DocumentID) error
	ListDocuments() ([]DocumentMeta, error)
	Close() error
}

// dbStore is the default bbolt-backed Store.
type dbStore struct {
	db *bolt.DB
}

// OpenStore opens (creating if needed) the bbolt store at path.
func OpenStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketDocuments))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &dbStore{db: db}, nil
}

func blockBucket(id DocumentID) []byte {
	return []byte(blockBucketPrefix + string(id))
}

func (s *dbStore) SaveDocument(rec DocumentRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Bucket([]byte(bucketDocuments)).Put([]byte(rec.ID), meta); err != nil {
			return err
		}

		// Rewrite the block bucket wholesale so deleted blocks disappear.
		name := blockBucket(DocumentID(rec.ID))
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(name)
		if err != nil {
			return err
		}
		for _, br := range rec.Blocks {
			data, err := json.Marshal(br)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(br.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *dbStore) LoadDocument(id DocumentID) (DocumentRecord, error) {
	var rec DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketDocuments)).Get([]byte(id))
		if meta == nil {
			return ErrDocumentNotFound
		}
		if err := json.Unmarshal(meta, &rec); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		b := tx.Bucket(blockBucket(id))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var br BlockRecord
			if err := json.Unmarshal(v, &br); err != nil {
				return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
			}
			rec.Blocks = append(rec.Blocks, br)
			return nil
		})
	})
	return rec, err
}

func (s *dbStore) DeleteDocument(id DocumentID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(bucketDocuments)).Delete([]byte(id)); err != nil {
			return err
		}
		name := blockBucket(id)
		if tx.Bucket(name) != nil {
			return tx.DeleteBucket(name)
		}
		return nil
	})
}

func (s *dbStore) ListDocuments() ([]DocumentMeta, error) {
	var out []DocumentMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDocuments)).ForEach(func(_, v []byte) error {
			var rec DocumentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
			}
			out = append(out, DocumentMeta{ID: DocumentID(rec.ID), Title: rec.Title})
			return nil
		})
	})
	return out, err
}

func (s *dbStore) Close() error {
	return s.db.Close()
}
