package sql

import (
	"fmt"
)

// TableName is the table_ref the undo log carries per record. The log never
// interprets it; it exists only so a caller inverting a change knows which
// table to apply it to.
type TableName struct {
	Database Identifier
	Schema   Identifier
	Table    Identifier
}

func (tn TableName) String() string {
	if tn.Database == 0 {
		if tn.Schema == 0 {
			return tn.Table.String()
		}
		return fmt.Sprintf("%s.%s", tn.Schema, tn.Table)
	}
	return fmt.Sprintf("%s.%s.%s", tn.Database, tn.Schema, tn.Table)
}
