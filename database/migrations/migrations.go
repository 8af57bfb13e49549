package migrations

import _ "embed"

//go:embed 0001_monitoring.sql
var Schema string
