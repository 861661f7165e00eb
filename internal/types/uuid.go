package types

import (
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// id prefixes, e.g. sub_01J9Z3X4W6KQ8V2M5N7P0R1S3T
const (
	UUID_PREFIX_ACCOUNT      = "acc"
	UUID_PREFIX_SUBSCRIPTION = "sub"
	UUID_PREFIX_PLAN         = "plan"
	UUID_PREFIX_USER         = "user"
	UUID_PREFIX_EVENT        = "evt"
)

const (
	SHORT_ID_PREFIX_ERROR = "E"

	shortIDMaxLen = 12
)

var errorRefs = shortid.MustNew(1, shortid.DefaultABC, 2342)

// GenerateUUID returns a lexically sortable ulid.
func GenerateUUID() string {
	return ulid.Make().String()
}

func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}

// GenerateErrorReference returns the correlation id shown in error responses
// and logged with the failure, e.g. EXYZ12A8Q.
func GenerateErrorReference() string {
	id, err := errorRefs.Generate()
	if err != nil {
		return SHORT_ID_PREFIX_ERROR
	}
	id = strings.NewReplacer("-", "", "_", "").Replace(id)
	if room := shortIDMaxLen - len(SHORT_ID_PREFIX_ERROR); len(id) > room {
		id = id[:room]
	}
	return strings.ToUpper(SHORT_ID_PREFIX_ERROR + id)
}
