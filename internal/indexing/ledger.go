package indexing

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketKnowledgeBases = []byte("knowledge_bases")

// LedgerEntry records one created knowledge base. SupersededBy is set when
// a later rebuild replaced it, which is exactly what makes the old one an
// orphan on the remote side.
type LedgerEntry struct {
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	ConnectionID    string    `json:"connection_id"`
	MemberIDs       []string  `json:"member_ids"`
	CreatedAt       time.Time `json:"created_at"`
	SupersededBy    string    `json:"superseded_by,omitempty"`
}

// Ledger is a durable record of every knowledge base this client created.
// The remote service keeps superseded knowledge bases around forever, so
// the ledger is the only place orphans stay enumerable.
type Ledger struct {
	db  *bolt.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewLedger opens (or initializes) a ledger at the given bbolt database.
func NewLedger(db *bolt.DB) (*Ledger, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketKnowledgeBases)
		return createErr
	}); err != nil {
		return nil, fmt.Errorf("create knowledge bases bucket: %w", err)
	}

	return &Ledger{db: db, now: time.Now}, nil
}

// Record implements Recorder: stores the new knowledge base and marks the
// superseded one, if any, as replaced.
func (l *Ledger) Record(knowledgeBaseID, connectionID string, memberIDs []string, supersedes string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKnowledgeBases)

		entry := LedgerEntry{
			KnowledgeBaseID: knowledgeBaseID,
			ConnectionID:    connectionID,
			MemberIDs:       append([]string(nil), memberIDs...),
			CreatedAt:       l.now(),
		}
		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal ledger entry: %w", err)
		}
		if err := b.Put([]byte(knowledgeBaseID), data); err != nil {
			return fmt.Errorf("store ledger entry: %w", err)
		}

		if supersedes == "" || supersedes == knowledgeBaseID {
			return nil
		}

		prev := b.Get([]byte(supersedes))
		if prev == nil {
			return nil
		}
		var prevEntry LedgerEntry
		if err := json.Unmarshal(prev, &prevEntry); err != nil {
			return fmt.Errorf("unmarshal superseded entry: %w", err)
		}
		prevEntry.SupersededBy = knowledgeBaseID
		data, err = json.Marshal(&prevEntry)
		if err != nil {
			return fmt.Errorf("marshal superseded entry: %w", err)
		}
		return b.Put([]byte(supersedes), data)
	})
}

// Get returns the entry for a knowledge base id, or nil when unknown.
func (l *Ledger) Get(knowledgeBaseID string) (*LedgerEntry, error) {
	var entry *LedgerEntry

	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketKnowledgeBases).Get([]byte(knowledgeBaseID))
		if data == nil {
			return nil
		}
		entry = &LedgerEntry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Orphans lists all superseded knowledge bases, oldest first.
func (l *Ledger) Orphans() ([]LedgerEntry, error) {
	var orphans []LedgerEntry

	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKnowledgeBases).ForEach(func(_, v []byte) error {
			var entry LedgerEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshal ledger entry: %w", err)
			}
			if entry.SupersededBy != "" {
				orphans = append(orphans, entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].CreatedAt.Before(orphans[j].CreatedAt)
	})
	return orphans, nil
}
