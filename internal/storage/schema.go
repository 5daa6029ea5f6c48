package storage

const recordsSchema = `
CREATE TABLE records (
	name TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL
);
`

// recordsMigrations[i] upgrades a database at user_version i. Index 0 is
// covered by recordsSchema.
var recordsMigrations = []string{
	"",
	`ALTER TABLE records ADD COLUMN size INTEGER NOT NULL DEFAULT 0;`,
}
