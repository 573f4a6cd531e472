package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JaimeStill/libris/pkg/middleware"
)

// KeyPrefix namespaces dedup markers in the shared cache.
const KeyPrefix = "viewed:"

// Kind identifies how a viewer was recognized.
type Kind string

const (
	KindUser Kind = "user"
	KindAddr Kind = "addr"
)

// Viewer is the identity a view is deduplicated against.
type Viewer struct {
	Kind  Kind
	Value string
}

// ViewerOf prefers the authenticated user id and falls back to the client
// address. It returns ErrMissingViewer when neither is known.
func ViewerOf(v middleware.Viewer) (Viewer, error) {
	if v.UserID != nil {
		return Viewer{Kind: KindUser, Value: strconv.FormatInt(*v.UserID, 10)}, nil
	}
	if addr := strings.TrimSpace(v.Addr); addr != "" {
		return Viewer{Kind: KindAddr, Value: addr}, nil
	}
	return Viewer{}, ErrMissingViewer
}

// View is one request to count a view of a version.
// BookID and UserID are the claimed owners and are verified before counting.
type View struct {
	VersionID int64
	BookID    int64
	UserID    int64
	Viewer    Viewer
}

// Result reports whether a view was counted or absorbed by the dedup window.
type Result struct {
	VersionID int64 `json:"version_id"`
	Counted   bool  `json:"counted"`
}

// Key returns the dedup cache key for a version and viewer.
func Key(versionID int64, v Viewer) string {
	return fmt.Sprintf("%s%d:%s:%s", KeyPrefix, versionID, v.Kind, v.Value)
}
