// Package deeplink encodes and decodes start-command payloads of the form
// <prefix>_<ownerId>_<fileUniqueId>.
package deeplink

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filegate/internal/server/models"
)

var (
	// ErrNotDeepLink means the payload has no recognized prefix; callers
	// treat it as a plain start command.
	ErrNotDeepLink = errors.New("not a deep link")
	// ErrMalformed means the prefix is known but the rest does not parse.
	ErrMalformed = errors.New("malformed deep link")
)

const sep = "_"

var prefixes = map[string]models.Kind{
	"verify":   models.KindVerify,
	"get":      models.KindGet,
	"ownerget": models.KindOwnerGet,
}

// Decode parses payload. The file unique id is everything after the second
// separator and may itself contain underscores.
func Decode(payload string) (models.DeepLinkRequest, error) {
	parts := strings.SplitN(payload, sep, 3)
	if len(parts) < 2 {
		return models.DeepLinkRequest{}, ErrNotDeepLink
	}

	kind, ok := prefixes[parts[0]]
	if !ok {
		return models.DeepLinkRequest{}, ErrNotDeepLink
	}

	if len(parts) < 3 || parts[2] == "" {
		return models.DeepLinkRequest{}, fmt.Errorf("%w: %q: missing file id", ErrMalformed, payload)
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return models.DeepLinkRequest{}, fmt.Errorf("%w: %q: owner id: %v", ErrMalformed, payload, err)
	}

	return models.DeepLinkRequest{Kind: kind, OwnerID: ownerID, FileUniqueID: parts[2]}, nil
}

// Encode is the inverse of Decode.
func Encode(kind models.Kind, ownerID int64, fileUniqueID string) string {
	return kind.String() + sep + strconv.FormatInt(ownerID, 10) + sep + fileUniqueID
}

// EncodeRequest encodes an already decoded request.
func EncodeRequest(req models.DeepLinkRequest) string {
	return Encode(req.Kind, req.OwnerID, req.FileUniqueID)
}
