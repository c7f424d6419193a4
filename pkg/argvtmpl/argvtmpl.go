// Package argvtmpl tokenizes a target command-line template and expands
// the two sentinel tokens the executor understands: "@@" (replaced by a
// temp file path holding the input) and "{stdin}" (removed from argv; the
// input is streamed to the child's stdin instead).
package argvtmpl

import "strings"

// Split tokenizes s the way a POSIX shell would for a simple, escape-aware
// command line: double and single quotes group, backslash escapes the next
// character, unquoted whitespace separates tokens.
func Split(s string) []string {
	var out []string
	var cur strings.Builder
	var inSingle, inDouble, esc bool
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, c := range s {
		switch {
		case esc:
			cur.WriteRune(c)
			esc = false
		case c == '\\':
			esc = true
		case !inSingle && c == '"':
			inDouble = !inDouble
		case !inDouble && c == '\'':
			inSingle = !inSingle
		case !inSingle && !inDouble && isSpace(c):
			flush()
		default:
			cur.WriteRune(c)
		}
	}
	flush()
	return out
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

const (
	// FileToken is substituted with the path to a temp file containing
	// the mutated input.
	FileToken = "@@"
	// StdinToken marks that the input should be streamed over stdin
	// instead of (or in addition to) a file; the token itself is
	// dropped from the expanded argv.
	StdinToken = "{stdin}"
)

// Expansion is the result of resolving a template against one execution:
// the concrete argv to exec, and whether stdin streaming was requested.
type Expansion struct {
	Argv       []string
	UseStdin   bool
	UsedFile   bool
}

// Expand resolves template tokens against filePath (the temp file holding
// the input; the executor creates it only when Needs reports needFile, and
// passes "" otherwise). If neither FileToken nor StdinToken appears in
// the template, FileToken is implicitly appended at the end, matching the
// spec's "if neither appears, @@ is implicitly used" rule.
func Expand(template []string, filePath string) Expansion {
	var argv []string
	var usedFile, useStdin bool
	for _, tok := range template {
		switch tok {
		case FileToken:
			argv = append(argv, filePath)
			usedFile = true
		case StdinToken:
			useStdin = true
		default:
			argv = append(argv, tok)
		}
	}
	if !usedFile && !useStdin {
		argv = append(argv, filePath)
		usedFile = true
	}
	return Expansion{Argv: argv, UseStdin: useStdin, UsedFile: usedFile}
}

// Needs reports whether template references FileToken or StdinToken (or
// neither, in which case a file is used implicitly and this returns
// needFile=true).
func Needs(template []string) (needFile, needStdin bool) {
	for _, tok := range template {
		switch tok {
		case FileToken:
			needFile = true
		case StdinToken:
			needStdin = true
		}
	}
	if !needFile && !needStdin {
		needFile = true
	}
	return
}
