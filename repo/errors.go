package repo

import (
	"fmt"

	"github.com/Skryldev/jobly/db"
)

// scanner is satisfied by both *db.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// classifyJobWrite turns constraint failures on jobs into caller-facing
// kinds. Anything else is returned unchanged.
func classifyJobWrite(err error, title, handle string) error {
	switch {
	case db.IsDuplicateKey(err):
		msg := "duplicate job posting"
		if title != "" {
			msg = fmt.Sprintf("duplicate job posting: %s at %s", title, handle)
		}
		return db.Reclassify(err, db.ErrDuplicateKey, msg)
	case db.IsForeignKeyViolation(err):
		return db.Reclassify(err, db.ErrInvalidArgument, fmt.Sprintf("company %q does not exist", handle))
	case db.IsCheckViolation(err):
		return db.Reclassify(err, db.ErrInvalidArgument, "job rejected by a table constraint")
	}
	return err
}

func classifyCompanyWrite(err error, handle string) error {
	switch {
	case db.IsDuplicateKey(err):
		return db.Reclassify(err, db.ErrDuplicateKey, fmt.Sprintf("duplicate company: %s", handle))
	case db.IsCheckViolation(err):
		return db.Reclassify(err, db.ErrInvalidArgument, "company rejected by a table constraint")
	}
	return err
}
