package snapshot

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"
)

// LodeArchivalClient is a real Lode-backed ArchivalClient: a single
// Hive-partitioned Dataset, partition keys narrowed from Lode's general
// source/category/day/run_id/event_type layout to store_name/day (a
// snapshot has no run or category of its own).
type LodeArchivalClient struct {
	dataset lode.Dataset
}

// NewLodeArchivalClient creates a Lode-backed client with filesystem
// storage rooted at root.
func NewLodeArchivalClient(dataset, root string) (*LodeArchivalClient, error) {
	return NewLodeArchivalClientWithFactory(dataset, lode.NewFSFactory(root))
}

// NewLodeArchivalClientWithFactory creates a Lode-backed client with a
// custom store factory. Use lode.NewMemoryFactory() in tests.
func NewLodeArchivalClientWithFactory(dataset string, factory lode.StoreFactory) (*LodeArchivalClient, error) {
	if dataset == "" {
		dataset = DefaultArchivalDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("store_name", "day"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot: new lode dataset: %w", err)
	}
	return &LodeArchivalClient{dataset: ds}, nil
}

// WriteSnapshot implements ArchivalClient. Each blob is written as one
// map[string]any record, the shape the Hive partitioner reads store_name
// and day from. The blob is base64-encoded since the gob blob is arbitrary
// binary and Lode's JSONL codec requires JSON-safe values.
func (c *LodeArchivalClient) WriteSnapshot(ctx context.Context, _, storeName, day string, takenAt time.Time, data []byte) error {
	record := map[string]any{
		"store_name": storeName,
		"day":        day,
		"taken_at":   takenAt.UTC().Format(time.RFC3339Nano),
		"data_b64":   base64.StdEncoding.EncodeToString(data),
	}
	_, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{})
	return err
}

// Close implements ArchivalClient; Lode's current Dataset API requires no
// explicit close.
func (c *LodeArchivalClient) Close() error { return nil }

var _ ArchivalClient = (*LodeArchivalClient)(nil)
