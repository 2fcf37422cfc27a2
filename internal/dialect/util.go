package dialect

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_#][A-Za-z0-9_$#]*$`)

// ValidIdent reports whether s is a plain identifier safe to splice into SQL
// after quoting.
func ValidIdent(s string) bool {
	return identRe.MatchString(s)
}

// ValidateName checks every non-empty part of a (possibly dotted) name.
func ValidateName(parts ...string) error {
	for _, p := range parts {
		if p == "" {
			continue
		}
		for _, seg := range strings.Split(p, ".") {
			if !ValidIdent(seg) {
				return fmt.Errorf("invalid identifier %q", p)
			}
		}
	}
	return nil
}

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	return generatePlaceholdersFrom(0, count, placeholderFunc)
}

func generatePlaceholdersFrom(start, count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(start + i)
	}
	return strings.Join(placeholders, ", ")
}

// multiRowInsert renders INSERT INTO t (cols) VALUES (...), (...) with
// placeholders numbered across all rows.
func multiRowInsert(d Dialect, name TableName, cols []string, rows int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	groups := make([]string, rows)
	for r := 0; r < rows; r++ {
		groups[r] = "(" + generatePlaceholdersFrom(r*len(cols), len(cols), d.Placeholder) + ")"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", d.QualifiedName(name), strings.Join(quoted, ", "), strings.Join(groups, ", "))
}

// createTable renders CREATE TABLE with one nullable column per def.
func createTable(d Dialect, name TableName, cols []ColumnDef) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s NULL", d.QuoteIdent(c.Name), d.TypeName(c.Type, c.Length))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.QualifiedName(name), strings.Join(defs, ", "))
}

// qualify joins the non-empty parts of name, quoting each with quote.
func qualify(name TableName, quote func(string) string) string {
	var parts []string
	for _, p := range []string{name.Database, name.Schema, name.Name} {
		if p != "" {
			parts = append(parts, quote(p))
		}
	}
	return strings.Join(parts, ".")
}

// quoteDotted quotes every segment of a dotted name such as "dbo.spLoad".
func quoteDotted(name string, quote func(string) string) string {
	segs := strings.Split(name, ".")
	for i, s := range segs {
		segs[i] = quote(s)
	}
	return strings.Join(segs, ".")
}

// DefaultNormalizeType is a default implementation for type normalization:
// lowercase, with any length/precision suffix removed.
func DefaultNormalizeType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// DefaultGetSchemaName is a default implementation for Getting Schema Name (identity).
func DefaultGetSchemaName(input string) string {
	return input
}
