package models

import "time"

// BlobObject is one entry returned by a blob listing. Folders carry no
// creation time in Supabase listings, so CreatedAt may be zero.
type BlobObject struct {
	Name      string
	CreatedAt time.Time
	IsFolder  bool
}

type ListOptions struct {
	Limit      int
	SortBy     string
	Descending bool
}
