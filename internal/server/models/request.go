package models

import "fmt"

// Kind is the closed set of deep-link request kinds.
type Kind int

const (
	KindUnknown Kind = iota
	// KindVerify claims a verification grant and then delivers.
	KindVerify
	// KindGet is the public, gated file request.
	KindGet
	// KindOwnerGet lets an owner fetch their own file without gating.
	KindOwnerGet
)

func (k Kind) String() string {
	switch k {
	case KindVerify:
		return "verify"
	case KindGet:
		return "get"
	case KindOwnerGet:
		return "ownerget"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DeepLinkRequest is a decoded deep-link payload. It is request scoped and
// never mutated after decoding.
type DeepLinkRequest struct {
	Kind         Kind
	OwnerID      int64
	FileUniqueID string
}
