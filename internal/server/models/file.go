package models

import "time"

// FileRecord is the metadata of a stored file. The content itself lives as a
// message in the storage channel; StorageMessageID points at it.
type FileRecord struct {
	OwnerID          int64
	FileUniqueID     string
	StorageMessageID int
	FileName         string
	StreamID         string
	CreatedAt        time.Time
}
