package uploads

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename reduces name to a flat, ASCII-only file name that is safe
// to join with a directory. It returns "" when nothing usable is left.
//
//	"My cool movie.mov"      -> "My_cool_movie.mov"
//	"../../../etc/passwd"    -> "etc_passwd"
//	"Fête à l'école.jpg"     -> "Fete_a_lecole.jpg"
func SanitizeFilename(name string) string {
	var ascii strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < utf8.RuneSelf {
			ascii.WriteRune(r)
		}
	}

	s := strings.NewReplacer("/", " ", "\\", " ").Replace(ascii.String())
	s = strings.Join(strings.Fields(s), "_")

	kept := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '.' || r == '-':
			return r
		}
		return -1
	}, s)
	return strings.Trim(kept, "._")
}
