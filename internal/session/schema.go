package session

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

// Schemas returns the JSON schema documents for the persisted slices, keyed
// by file name (for example "cart.schema.json"). Documents reference each
// other by file name.
func Schemas() map[string]string {
	out := make(map[string]string)
	entries, err := fs.ReadDir(schemaFS, "schema")
	if err != nil {
		return out
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile(path.Join("schema", e.Name()))
		if err != nil {
			continue
		}
		out[e.Name()] = string(data)
	}
	return out
}

// SchemaFile returns the schema file name that validates a slice key.
func SchemaFile(key string) string {
	return key + ".schema.json"
}
