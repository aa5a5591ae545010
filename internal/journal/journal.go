// Package journal persiste en disco los frames crudos de una sesión.
//
// Cada mensaje entrante y saliente se guarda con un número de secuencia
// monótono, lo que permite reconstruir la conversación con el RM para
// diagnóstico post-mortem.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	incomingBucket = "incoming"
	outgoingBucket = "outgoing"
)

// Journal registro append-only de frames de sesión sobre bbolt.
type Journal struct {
	db *bolt.DB
}

// Record frame persistido.
type Record struct {
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp_ms"`
	Raw       []byte `json:"raw"`
}

// Open abre (o crea) el journal en la ruta dada.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir journal path: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(incomingBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(outgoingBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close cierra el journal.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordIncoming persiste un frame recibido del RM.
func (j *Journal) RecordIncoming(raw []byte) error {
	return j.append(incomingBucket, raw)
}

// RecordOutgoing persiste un frame enviado al RM.
func (j *Journal) RecordOutgoing(raw []byte) error {
	return j.append(outgoingBucket, raw)
}

func (j *Journal) append(bucket string, raw []byte) error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		rec := Record{
			Seq:       seq,
			Timestamp: time.Now().UnixMilli(),
			Raw:       raw,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// Incoming retorna los frames recibidos, en orden de llegada.
func (j *Journal) Incoming() ([]Record, error) {
	return j.list(incomingBucket)
}

// Outgoing retorna los frames enviados, en orden de envío.
func (j *Journal) Outgoing() ([]Record, error) {
	return j.list(outgoingBucket)
}

func (j *Journal) list(bucket string) ([]Record, error) {
	var records []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}
