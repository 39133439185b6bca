package models

const ETagAny = "*"

type ETag string

func (e ETag) String() string {
	return string(e)
}

// MutableResource is implemented by every model stored in a table with
// optimistic-locking support.
type MutableResource interface {
	GetCreatedAt() Time
	GetUpdatedAt() Time
	SetUpdatedAt(t Time)
	GetETag() ETag
	SetETag(eTag ETag)
}

func GetETag(resource MutableResource, etag ETag) ETag {
	if etag != "" {
		return etag
	}
	return resource.GetETag()
}
