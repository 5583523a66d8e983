package snapshot

import (
	"context"
	"time"
)

// DefaultArchivalDataset is the Lode dataset name used when an
// ArchivalConfig doesn't specify one.
const DefaultArchivalDataset = "tracewatch"

// DeriveDay computes the Hive partition day from a timestamp, UTC
// YYYY-MM-DD.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ArchivalConfig holds the Hive partition keys a snapshot blob is written
// under: dataset plus store name and day, narrowed from Lode's general
// source/category/day/run_id layout since a snapshot has no run_id or
// category of its own.
type ArchivalConfig struct {
	// Dataset is the Lode dataset ID (default: DefaultArchivalDataset).
	Dataset string
	// StoreName is the partition key identifying which Store this blob
	// belongs to.
	StoreName string
}

// ArchivalClient abstracts the Lode storage client a sink writes through,
// narrowed to the one write this package needs (a snapshot has no chunks
// or running-metrics concept of its own).
type ArchivalClient interface {
	// WriteSnapshot persists one snapshot blob for (dataset, storeName, day).
	WriteSnapshot(ctx context.Context, dataset, storeName, day string, takenAt time.Time, data []byte) error
	// Close releases client resources.
	Close() error
}

// ArchivalSink durably persists Snapshotter output through an
// ArchivalClient, Hive-partitioned by store name and day. The Snapshotter
// itself only produces bytes; ArchivalSink is one optional place those
// bytes can land.
type ArchivalSink struct {
	config ArchivalConfig
	client ArchivalClient
}

// NewArchivalSink creates a sink writing through client.
func NewArchivalSink(config ArchivalConfig, client ArchivalClient) *ArchivalSink {
	if config.Dataset == "" {
		config.Dataset = DefaultArchivalDataset
	}
	return &ArchivalSink{config: config, client: client}
}

// Write persists blob (as produced by Snapshotter.Snapshot) through the
// sink's client, partitioned under today's UTC day.
func (s *ArchivalSink) Write(ctx context.Context, blob []byte) error {
	return s.client.WriteSnapshot(ctx, s.config.Dataset, s.config.StoreName, DeriveDay(time.Now()), time.Now(), blob)
}

// Close releases the sink's client resources.
func (s *ArchivalSink) Close() error {
	return s.client.Close()
}

// StubArchivalClient is an in-memory ArchivalClient for tests: accepts
// writes without persisting, so integration tests can assert on what
// would have been written.
type StubArchivalClient struct {
	Writes []StubSnapshotWrite
	Closed bool
}

// StubSnapshotWrite records one ArchivalClient.WriteSnapshot call.
type StubSnapshotWrite struct {
	Dataset   string
	StoreName string
	Day       string
	TakenAt   time.Time
	Data      []byte
}

// NewStubArchivalClient creates an empty StubArchivalClient.
func NewStubArchivalClient() *StubArchivalClient {
	return &StubArchivalClient{}
}

// WriteSnapshot implements ArchivalClient.
func (c *StubArchivalClient) WriteSnapshot(_ context.Context, dataset, storeName, day string, takenAt time.Time, data []byte) error {
	c.Writes = append(c.Writes, StubSnapshotWrite{Dataset: dataset, StoreName: storeName, Day: day, TakenAt: takenAt, Data: data})
	return nil
}

// Close implements ArchivalClient.
func (c *StubArchivalClient) Close() error {
	c.Closed = true
	return nil
}

var _ ArchivalClient = (*StubArchivalClient)(nil)
