package database

import (
	"fmt"
	"regexp"

	"llmtools/internal/config"
)

// Identifier kinds passed to IdentifierPolicy.Check.
const (
	IdentTable  = "table"
	IdentColumn = "column"
)

// IdentifierPolicy vets table and column names before they are concatenated
// into SQL. It runs before a connection is acquired.
type IdentifierPolicy interface {
	Check(kind, name string) error
}

// TrustPolicy accepts every identifier. It is the default.
type TrustPolicy struct{}

// Check implements IdentifierPolicy.
func (TrustPolicy) Check(kind, name string) error { return nil }

// StrictPolicy accepts plain identifiers, optionally schema-qualified once.
type StrictPolicy struct{}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// Check implements IdentifierPolicy.
func (StrictPolicy) Check(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// PolicyFor maps a config value to a policy.
func PolicyFor(name string) (IdentifierPolicy, error) {
	switch name {
	case "", config.PolicyTrust:
		return TrustPolicy{}, nil
	case config.PolicyStrict:
		return StrictPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown identifier policy %q", name)
	}
}

type identifier struct {
	kind string
	name string
}

// identifiersOf lists the names a descriptor would splice into SQL.
func identifiersOf(d Descriptor) []identifier {
	var out []identifier
	add := func(kind, name string) {
		out = append(out, identifier{kind: kind, name: name})
	}
	addKeys := func(r *Record) {
		keys, _ := entries(r)
		for _, k := range keys {
			add(IdentColumn, k)
		}
	}

	switch a := d.(type) {
	case CreateTableArgs:
		add(IdentTable, a.TableName)
		for _, c := range a.Columns {
			add(IdentColumn, c.Name)
		}
	case InsertEntryArgs:
		add(IdentTable, a.TableName)
		addKeys(a.Values)
	case DeleteTableArgs:
		add(IdentTable, a.TableName)
	case UpdateEntryArgs:
		add(IdentTable, a.TableName)
		addKeys(a.Values)
		addKeys(a.Conditions)
	case DeleteEntryArgs:
		add(IdentTable, a.TableName)
		addKeys(a.Conditions)
	}
	return out
}
