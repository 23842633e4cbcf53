package speech

import "strings"

type Gender int

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

// Voice is one voice offered by a synthesizer. The zero Voice means the
// engine default.
type Voice struct {
	Name   string
	Lang   string
	Gender Gender
}

func (v Voice) IsDefault() bool {
	return v.Name == ""
}

func (v Voice) english() bool {
	return strings.HasPrefix(strings.ToLower(v.Lang), "en")
}

// PreferredVoices is tried in order against voice names.
var PreferredVoices = []string{
	"Microsoft Guy Online (Natural)",
	"Microsoft Ryan Online (Natural)",
	"Google UK English Male",
	"Google US English",
	"Microsoft David",
	"Microsoft Mark",
	"Alex",
	"Daniel",
}

var maleHints = []string{"male", "guy", "david", "james"}

// SelectVoice picks a preferred voice by name, then a male English voice,
// then any English voice. It returns the zero Voice when nothing fits.
func SelectVoice(voices []Voice, prefs []string) Voice {
	for _, name := range prefs {
		for _, v := range voices {
			if strings.Contains(v.Name, name) {
				return v
			}
		}
	}

	for _, v := range voices {
		if !v.english() {
			continue
		}
		if v.Gender == GenderMale {
			return v
		}
		lower := strings.ToLower(v.Name)
		for _, hint := range maleHints {
			if strings.Contains(lower, hint) {
				return v
			}
		}
	}

	for _, v := range voices {
		if v.english() {
			return v
		}
	}
	return Voice{}
}
