package excel

import (
	"fmt"
	"strings"
)

// columnReplacer maps spreadsheet header characters onto characters valid
// in a SQLite identifier: separators become underscores, decoration is
// dropped, and "%" spells itself out.
var columnReplacer = strings.NewReplacer(
	" ", "_",
	"-", "_",
	"/", "_",
	"\\", "_",
	".", "_",
	"(", "",
	")", "",
	"$", "",
	"%", "percent",
)

// normalizeColumn converts a header cell into a column name. The mapping is
// deterministic; headers that normalize to the same name silently collide,
// with the later column winning. An empty header becomes col_<position>.
func normalizeColumn(header string, position int) string {
	name := columnReplacer.Replace(strings.ToLower(strings.TrimSpace(header)))
	if name == "" {
		return fmt.Sprintf("col_%d", position)
	}
	return name
}

// tableNameForSheet derives the table name from a sheet name: lowercased,
// spaces replaced with underscores.
func tableNameForSheet(sheet string) string {
	return strings.ReplaceAll(strings.ToLower(sheet), " ", "_")
}
