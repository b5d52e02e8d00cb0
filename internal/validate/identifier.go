package validate

import (
	"regexp"
	"strings"
)

// maxIdentifierLen bounds identifier length. Matches the strictest common
// warehouse limit rather than the loosest.
const maxIdentifierLen = 64

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedWords are names that can never be used as identifiers, even when
// they would match the grammar. Collisions are rejected because they are the
// cheapest way to smuggle a verb past downstream quoting differences.
var reservedWords = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {}, "merge": {},
	"create": {}, "drop": {}, "alter": {}, "truncate": {}, "grant": {},
	"revoke": {}, "from": {}, "where": {}, "into": {}, "values": {},
	"join": {}, "union": {}, "table": {}, "and": {}, "or": {}, "not": {},
	"null": {}, "as": {}, "on": {}, "set": {}, "exec": {}, "execute": {},
}

// ValidateIdentifier checks a name against the restrictive identifier
// grammar: alphanumeric plus underscore, must not start with a digit,
// bounded length, no reserved-word collision.
func ValidateIdentifier(name string) error {
	if name == "" {
		return &InvalidIdentifierError{Name: name, Reason: "empty name"}
	}
	if len(name) > maxIdentifierLen {
		return &InvalidIdentifierError{Name: name, Reason: "exceeds maximum length"}
	}
	if !identifierPattern.MatchString(name) {
		return &InvalidIdentifierError{Name: name, Reason: "only letters, digits and underscores are allowed"}
	}
	if _, ok := reservedWords[strings.ToLower(name)]; ok {
		return &InvalidIdentifierError{Name: name, Reason: "collides with a reserved word"}
	}
	return nil
}
