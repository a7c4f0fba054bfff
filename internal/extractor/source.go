// Package extractor pulls SQL statements out of source and mapper files and
// wraps them as validation contexts.
package extractor

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"sqlguard/internal/model"
)

// Quoted-SQL patterns per quote style. Non-greedy so the match stops at the
// first closing quote; RE2 has no backreferences.
var (
	doubleQuoteSQL = regexp.MustCompile(`"(?i)(?:SELECT|INSERT|UPDATE|DELETE)\b.*?"`)
	singleQuoteSQL = regexp.MustCompile(`'(?i)(?:SELECT|INSERT|UPDATE|DELETE)\b.*?'`)
	backTickSQL    = regexp.MustCompile("`(?i)(?:SELECT|INSERT|UPDATE|DELETE)\\b.*?`")

	quotePatterns = []*regexp.Regexp{doubleQuoteSQL, singleQuoteSQL, backTickSQL}
)

// builderCallRe matches query-builder call sites whose final SQL only exists
// at runtime. These are reported as unchecked rather than silently skipped.
var builderCallRe = regexp.MustCompile(`(?i)\b(QueryWrapper|LambdaQueryWrapper|UpdateWrapper|QueryBuilder|SelectBuilder|squirrel\.(?:Select|Update|Delete|Insert)|goqu\.(?:From|Update|Delete|Insert))\b`)

// SourceExtractor finds SQL string literals and query-builder call sites in
// program source files, line by line.
type SourceExtractor struct {
}

func NewSourceExtractor() *SourceExtractor {
	return &SourceExtractor{}
}

func (e *SourceExtractor) Extract(filePath string, content []byte) ([]*model.SqlContext, error) {
	var contexts []*model.SqlContext

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		found := false
		for _, re := range quotePatterns {
			for _, match := range re.FindAllString(line, -1) {
				if len(match) < 2 {
					continue
				}
				found = true
				contexts = append(contexts, &model.SqlContext{
					SQL:         match[1 : len(match)-1],
					StatementID: fmt.Sprintf("%s:%d", filePath, lineNo),
					Location:    model.Location{FilePath: filePath, Line: lineNo},
				})
			}
		}

		if !found && builderCallRe.MatchString(line) {
			contexts = append(contexts, &model.SqlContext{
				SQL:                  strings.TrimSpace(line),
				StatementID:          fmt.Sprintf("%s:%d", filePath, lineNo),
				RequiresRuntimeCheck: true,
				Location:             model.Location{FilePath: filePath, Line: lineNo},
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filePath, err)
	}
	return contexts, nil
}
