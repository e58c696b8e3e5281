package news

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	hashtagExpr = regexp.MustCompile(`#[^\s#]+`)
	captionExpr = regexp.MustCompile(`[\[(]?(사진|그림|캡션)\s*[=:]\s*[^\s\])]+[\])]?`)
	emailExpr   = regexp.MustCompile(`[\w.+-]+@[\w-]+(\.[\w-]+)+`)

	// "(서울=연합뉴스) 홍길동 기자 = " style dateline in front of the lead.
	datelineExpr = regexp.MustCompile(`^(\([^)]*\)\s*)?([가-힣]{2,4}\s*)+(기자|특파원|인턴기자)\s*=\s*`)
	bracketExpr  = regexp.MustCompile(`^[\[(【].*(사진|그림|캡션|기자).*[\])】]$`)
)

// relatedPrefixes open lines that only link elsewhere.
var relatedPrefixes = []string{"관련 기사", "관련기사", "추천 기사", "추천기사", "기사 제보", "기사제보", "댓글"}

// copyrightMarkers start the footer; everything after one is dropped.
var copyrightMarkers = []string{"Copyright", "COPYRIGHT", "copyright", "ⓒ", "©", "무단 전재", "무단전재", "재배포 금지", "재배포금지"}

// maxBylineRunes bounds how long a line holding an e-mail may be and still
// count as a reporter line.
const maxBylineRunes = 80

// cleanArticleText removes page boilerplate that skews sentiment from an
// extracted article body and collapses whitespace.
func cleanArticleText(text string) string {
	kept := make([]string, 0, 16)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || bracketExpr.MatchString(line) || hasPrefixAny(line, relatedPrefixes) {
			continue
		}

		if i := indexAny(line, copyrightMarkers); i >= 0 {
			line = line[:i]
		}
		if emailExpr.MatchString(line) {
			if utf8.RuneCountInString(line) <= maxBylineRunes {
				continue
			}
			line = emailExpr.ReplaceAllString(line, "")
		}

		line = datelineExpr.ReplaceAllString(line, "")
		line = captionExpr.ReplaceAllString(line, "")
		line = hashtagExpr.ReplaceAllString(line, "")
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return normalizeSpace(strings.Join(kept, " "))
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// indexAny returns the earliest position of any marker in s, or -1.
func indexAny(s string, markers []string) int {
	first := -1
	for _, m := range markers {
		if i := strings.Index(s, m); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}
	return first
}
