package transcode

import (
	"strings"

	"github.com/samber/lo"
)

// Matcher decides whether a rule applies to an archive entry name.
type Matcher func(entryName string) bool

// HasPrefix matches entry names starting with prefix. Comparison is exact:
// spreadsheet readers resolve parts by exact, case-sensitive name.
func HasPrefix(prefix string) Matcher {
	return func(entryName string) bool {
		return strings.HasPrefix(entryName, prefix)
	}
}

// Exact matches a single entry name.
func Exact(name string) Matcher {
	return func(entryName string) bool {
		return entryName == name
	}
}

// Rule maps the entries it matches to the element that must be stripped from them.
type Rule struct {
	Name  string
	Match Matcher
	Tag   string
}

// Rules is evaluated in order; the first matching rule wins.
type Rules []Rule

// Find returns the first rule matching entryName.
func (r Rules) Find(entryName string) (Rule, bool) {
	return lo.Find(r, func(rule Rule) bool {
		return rule.Match(entryName)
	})
}

// Tags returns the distinct tags stripped by the rule set, in rule order.
func (r Rules) Tags() []string {
	return lo.Uniq(lo.Map(r, func(rule Rule, _ int) string {
		return rule.Tag
	}))
}

const (
	WorksheetRule = "worksheet"
	WorkbookRule  = "workbook"

	SheetProtectionTag    = "sheetProtection"
	WorkbookProtectionTag = "workbookProtection"
)

// DefaultRules returns the protection rules for SpreadsheetML packages.
func DefaultRules() Rules {
	return Rules{
		{Name: WorksheetRule, Match: HasPrefix("xl/worksheets/sheet"), Tag: SheetProtectionTag},
		{Name: WorkbookRule, Match: HasPrefix("xl/workbook.xml"), Tag: WorkbookProtectionTag},
	}
}
