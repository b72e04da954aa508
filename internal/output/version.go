package output

// SchemaVersion is the version of the NDJSON event schema. It changes only
// when a field is removed or changes meaning.
const SchemaVersion = 1
