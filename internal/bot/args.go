package bot

import (
	"strconv"
	"strings"
	"unicode"

	"finbot/internal/core"
)

// token is one argument; quoted is set when it was written between double
// quotes, which pins it as a single value even if it contains spaces.
type token struct {
	text   string
	quoted bool
}

// Command is a parsed chat line.
type Command struct {
	Name string
	Args []token
}

// Parse splits text into a lower-cased command name and its arguments.
// A leading "/" or "!" is optional. Unterminated quotes run to the end of
// the line.
func Parse(text string) Command {
	toks := tokenize(text)
	if len(toks) == 0 {
		return Command{}
	}
	name := strings.TrimLeft(toks[0].text, "/!")
	if i := strings.IndexByte(name, '@'); i > 0 {
		// "/balance@finbot" style addressing
		name = name[:i]
	}
	return Command{Name: strings.ToLower(name), Args: toks[1:]}
}

func tokenize(text string) []token {
	var (
		out     []token
		cur     strings.Builder
		inQuote bool
		quoted  bool
		started bool
	)
	flush := func() {
		if started {
			out = append(out, token{text: cur.String(), quoted: quoted})
		}
		cur.Reset()
		started, quoted = false, false
	}

	for _, r := range text {
		switch {
		case r == '"':
			if inQuote {
				inQuote = false
				continue
			}
			inQuote, quoted, started = true, true, true
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return out
}

func join(toks []token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

// isAmount reports whether t is an unquoted token that parses as money.
func isAmount(t token) bool {
	if t.quoted {
		return false
	}
	_, err := core.ParseAmount(t.text)
	return err == nil
}

// splitCategory picks the longest run of leading tokens naming one of
// names. A quoted first token is always taken as the category, known or
// not, so the caller can report the fallback. With no match the category
// is empty and every token belongs to the description.
func splitCategory(toks []token, names []string) (category, description string) {
	if len(toks) == 0 {
		return "", ""
	}
	if toks[0].quoted {
		return toks[0].text, join(toks[1:])
	}
	for n := len(toks); n > 0; n-- {
		candidate := join(toks[:n])
		for _, name := range names {
			if strings.EqualFold(candidate, name) {
				return name, join(toks[n:])
			}
		}
	}
	return "", join(toks)
}

// parseUserRef accepts a numeric id or a chat mention such as <@42> or <@!42>.
func parseUserRef(s string) (int64, bool) {
	s = strings.TrimPrefix(s, "<@")
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimSuffix(s, ">")
	s = strings.TrimPrefix(s, "@")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
