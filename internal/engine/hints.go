package engine

import "strings"

var abbreviations = map[string]string{
	// Common Nouns
	"nm": "name", "dt": "date", "no": "number", "cd": "code",
	"desc": "description", "amt": "amount", "cnt": "count", "qty": "quantity",
	"addr": "address", "tel": "phone", "hp": "phone", "ph": "phone",
	"biz": "business", "pwd": "password", "passwd": "password", "pw": "password",
	"zip": "zipcode", "post": "zipcode", "msg": "message", "txt": "text",
	"tit": "title", "subj": "subject", "usr": "user", "emp": "employee",
	"dept": "department", "grp": "group", "cat": "category", "loc": "location",
	"st": "street", "bal": "balance", "avg": "average", "org": "organization",
	"cust": "customer", "co": "company", "cmpy": "company",

	// Verbs / Status
	"reg": "registered", "mod": "modified", "del": "deleted", "cre": "created",
	"upd": "updated", "yn": "yesno", "stat": "status", "sts": "status",
	"typ": "type", "val": "value", "seq": "sequence", "idx": "index",
	"is": "yesno", "use": "yesno", "flg": "flag",
}

// columnMeaning expands abbreviations in a column name, so "cust_nm" reads
// "customer name" and "RegDt" reads "registered date".
func columnMeaning(colName string) string {
	parts := splitWords(colName)
	for i, p := range parts {
		if full, ok := abbreviations[p]; ok {
			parts[i] = full
		}
	}
	return strings.Join(parts, " ")
}

// splitWords breaks snake_case and CamelCase names into lower-case words.
func splitWords(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == ' ' || r == '-':
			flush()
			continue
		case r >= 'A' && r <= 'Z' && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') || (prev >= 'A' && prev <= 'Z' && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func hasWord(meaning string, words ...string) bool {
	fields := strings.Fields(meaning)
	for _, w := range words {
		for _, f := range fields {
			if f == w {
				return true
			}
		}
	}
	return false
}
