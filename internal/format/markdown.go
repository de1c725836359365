package format

import "strings"

var mdv2Replacer = strings.NewReplacer(
	`\`, `\\`,
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// Escape escapes text for Telegram MarkdownV2
func Escape(s string) string {
	return mdv2Replacer.Replace(s)
}

// Bold returns s escaped and wrapped in bold markers
func Bold(s string) string {
	return "*" + Escape(s) + "*"
}

// Code returns s as an inline code span
func Code(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "`" + s + "`"
}
