package engine

import (
	"fmt"
	"strings"
	"time"

	"etlcore/internal/schema"
	"etlcore/internal/table"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// Generator produces fake rows shaped like a reference schema, for dry runs
// of a load against a staging database.
type Generator struct {
	faker  *gofakeit.Faker
	locale string
	now    time.Time
}

// NewGenerator returns a generator. seed 0 picks a random seed; locale "ko"
// switches names and addresses to Korean.
func NewGenerator(seed int64, locale string) *Generator {
	return &Generator{faker: gofakeit.New(seed), locale: locale, now: time.Now()}
}

// Rows returns n rows with one value per reference column, in reference order.
func (g *Generator) Rows(ref *schema.Reference, n int) *table.Table {
	cols := ref.Columns()
	rows := make([][]any, n)
	for i := range rows {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = g.Value(c)
		}
		rows[i] = row
	}
	return &table.Table{Columns: ref.Names(), Rows: rows}
}

// Value generates one value for col.
func (g *Generator) Value(col schema.Column) any {
	f := g.faker
	meaning := columnMeaning(col.Name)

	switch col.Type {
	case schema.Boolean:
		return f.Bool()
	case schema.SmallInteger:
		return int64(f.Number(1, 30000))
	case schema.Integer, schema.BigInteger:
		if hasWord(meaning, "year") {
			return int64(2000 + f.Number(0, 25))
		}
		if hasWord(meaning, "yesno", "active", "enabled", "flag") {
			return int64(f.Number(0, 1))
		}
		return int64(f.Number(1, 50000))
	case schema.Decimal:
		return decimal.NewFromFloat(f.Price(0.99, 9999.99)).Round(2)
	case schema.Float:
		return f.Float64Range(0, 1000)
	case schema.Date:
		d := f.DateRange(g.now.AddDate(-1, 0, 0), g.now)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	case schema.DateTime, schema.DateTime2, schema.SmallDateTime:
		return f.DateRange(g.now.AddDate(-1, 0, 0), g.now).UTC().Truncate(time.Second)
	case schema.UniqueIdentifier:
		return f.UUID()
	case schema.Char:
		if col.Length > 0 {
			return truncate(strings.ToUpper(f.LetterN(uint(col.Length))), col.Length)
		}
		return strings.ToUpper(f.LetterN(2))
	default:
		return truncate(g.text(meaning), col.Length)
	}
}

// text picks a string generator from the expanded column name.
func (g *Generator) text(meaning string) string {
	f := g.faker
	isID := hasWord(meaning, "id")
	ko := g.locale == "ko"

	switch {
	case hasWord(meaning, "email", "mail"):
		return f.Email()
	case !isID && hasWord(meaning, "phone", "mobile", "fax"):
		if ko {
			return fmt.Sprintf("010-%04d-%04d", f.Number(0, 9999), f.Number(0, 9999))
		}
		return f.Phone()
	case !isID && hasWord(meaning, "name", "first", "last"):
		if ko {
			return f.RandomString(LastNames) + f.RandomString(FirstNames)
		}
		if hasWord(meaning, "company", "organization", "business") {
			return f.Company()
		}
		return f.Name()
	case !isID && hasWord(meaning, "address", "street"):
		if ko {
			return fmt.Sprintf("%s %s %s %d번길", f.RandomString(Cities), f.RandomString(Districts), f.RandomString(Streets), f.Number(1, 100))
		}
		return f.Street()
	case hasWord(meaning, "zipcode", "postal"):
		return fmt.Sprintf("%05d", f.Number(0, 99999))
	case hasWord(meaning, "city"):
		if ko {
			return f.RandomString(Cities)
		}
		return f.City()
	case hasWord(meaning, "country"):
		return f.Country()
	case hasWord(meaning, "yesno", "flag"):
		return f.RandomString([]string{"Y", "N"})
	case hasWord(meaning, "status"):
		return f.RandomString([]string{"active", "pending", "closed"})
	case hasWord(meaning, "code"):
		return strings.ToUpper(f.LetterN(3)) + fmt.Sprintf("%03d", f.Number(0, 999))
	case isID:
		return f.UUID()
	case hasWord(meaning, "description", "message", "text", "comment", "note", "notes"):
		return f.Sentence(10)
	case hasWord(meaning, "title", "subject"):
		return f.Sentence(3)
	default:
		return f.Word()
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
