// Package driver implements the MongoDB store on top of the official
// mongo-driver client.
// This file translates LIKE patterns and normalizes decoded BSON values.
package driver

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tabula-io/tabula/core"
)

// toMongoLikePattern converts a SQL LIKE pattern into an anchored regex
// pattern: % becomes .* and _ becomes a single-character wildcard. The
// wildcards are parked on control characters so QuoteMeta cannot touch
// them and pattern text cannot collide with them.
//
// Example:
//
//	toMongoLikePattern("%admin_")
//	// "^.*admin.$"
func toMongoLikePattern(pattern string) string {
	safe := strings.NewReplacer("%", "\x00", "_", "\x01").Replace(pattern)
	safe = regexp.QuoteMeta(safe)
	safe = strings.NewReplacer("\x00", ".*", "\x01", ".").Replace(safe)
	return "^" + safe + "$"
}

// normalizeDocument converts a decoded BSON document into a plain
// document, mapping driver-specific types onto the values the rest of
// the library works with.
func normalizeDocument(raw bson.M) core.Document {
	doc := make(core.Document, len(raw))
	for field, value := range raw {
		doc[field] = normalizeValue(value)
	}
	return doc
}

// normalizeValue maps BSON wrapper types to plain values: timestamps
// become UTC time.Time, object ids become their hex form, and nested
// containers are normalized recursively.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.ObjectID:
		return v.Hex()
	case bson.M:
		return normalizeDocument(v)
	case bson.D:
		doc := make(core.Document, len(v))
		for _, elem := range v {
			doc[elem.Key] = normalizeValue(elem.Value)
		}
		return doc
	case bson.A:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return value
	}
}
