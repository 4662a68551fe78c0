package capgen

import (
	"strings"
	"unicode"
)

// CapabilityName converts a Go function name to a dotted capability
// name under the package's short name.
// e.g., package "bytes", func "ToUpper" → "bytes.to.upper",
// package "hashx", func "SHA256Sum" → "hashx.sha256.sum"
func CapabilityName(pkgName, funcName string) string {
	return pkgName + "." + strings.Join(splitWords(funcName), ".")
}

// KeywordsFor derives search keywords from a Go function name. The
// package name is always the first keyword.
func KeywordsFor(pkgName, funcName string) []string {
	keywords := []string{pkgName}
	for _, w := range splitWords(funcName) {
		if w != pkgName {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

// splitWords breaks a PascalCase identifier into lowercase words.
// Acronym runs stay together and digits stick to the preceding word.
// e.g., "ReadAll" → [read all], "HTTPServer" → [http server],
// "SHA256Sum" → [sha256 sum]
func splitWords(name string) []string {
	runes := []rune(name)
	var words []string
	var cur []rune

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				words = append(words, string(cur))
				cur = cur[:0]
			}
		}
		cur = append(cur, unicode.ToLower(r))
	}
	if len(cur) > 0 {
		words = append(words, string(cur))
	}
	return words
}
