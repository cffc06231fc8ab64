// Package metastore persists metadata records keyed by partition and row key.
// Upserting an existing key overwrites it.
package metastore

import (
	"context"

	"github.com/spachava753/imagecrawl/internal/models"
)

// Upserter inserts or overwrites rec.
type Upserter interface {
	Upsert(ctx context.Context, rec models.Record) error
}

// Attribute names for the record identity.
const (
	PartitionKeyAttr = "PartitionKey"
	RowKeyAttr       = "RowKey"
)
