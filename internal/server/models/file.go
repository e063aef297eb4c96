package models

import "time"

// File describes metadata for a binary payload owned by a single user.
// The content itself lives in object storage under BlobID; URL is the
// derived retrieval location stored alongside.
type File struct {
	ID        string
	OwnerID   string
	Name      string
	Size      int64
	Type      string
	Extension string
	BlobID    string
	URL       string
	CreatedAt time.Time
}

// TypeUsage aggregates the files of one category for the dashboard.
type TypeUsage struct {
	Size   int64
	Count  int64
	Latest time.Time
}

// SpaceUsage is the storage summary shown on the dashboard: per-category
// aggregates plus overall used/available bytes.
type SpaceUsage struct {
	ByType map[string]TypeUsage
	Used   int64
	All    int64
}
