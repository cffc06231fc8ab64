package metastore

import (
	"context"
	"sort"
	"sync"

	"github.com/spachava753/imagecrawl/internal/models"
)

// MemoryStore keeps records in memory. It backs dry runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[memoryKey]models.Record
}

type memoryKey struct {
	table, partition, row string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[memoryKey]models.Record)}
}

// Upsert implements Upserter.
func (s *MemoryStore) Upsert(ctx context.Context, rec models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[memoryKey{rec.Table, rec.PartitionKey, rec.RowKey}] = rec
	return nil
}

// Get returns the record stored under the given keys.
func (s *MemoryStore) Get(table, partitionKey, rowKey string) (models.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[memoryKey{table, partitionKey, rowKey}]
	return rec, ok
}

// Records returns every record in table ordered by partition then row key.
func (s *MemoryStore) Records(table string) []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Record
	for k, rec := range s.records {
		if k.table == table {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PartitionKey != out[j].PartitionKey {
			return out[i].PartitionKey < out[j].PartitionKey
		}
		return out[i].RowKey < out[j].RowKey
	})
	return out
}
