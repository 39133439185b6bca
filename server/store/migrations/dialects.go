package migrations

import (
	"fmt"

	"github.com/conveyorci/conveyor/server/store"
)

// dialectTemplates maps each supported driver to the SQL fragments that
// differ between databases when rendering the migration set.
var dialectTemplates = map[store.DBDriver]*DialectTemplate{
	store.Postgres: {
		Binary:            "BYTEA",
		IntegerPrimaryKey: "SERIAL PRIMARY KEY",
	},
	store.Sqlite: {
		Binary:            "BLOB",
		IntegerPrimaryKey: "integer NOT NULL PRIMARY KEY AUTOINCREMENT",
	},
}

func GetDialectForDriver(driver store.DBDriver) (*DialectTemplate, error) {
	template, ok := dialectTemplates[driver]
	if !ok {
		return nil, fmt.Errorf("error unsupported database driver: %s", driver)
	}
	return template, nil
}
