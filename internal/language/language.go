// Package language lists the ISO-639-1 codes accepted by the Whisper-family
// transcription models.
package language

import "sort"

type Language struct {
	Code string
	Name string
}

// Auto is the empty code: the provider detects the language.
var Auto = Language{Code: "", Name: "Auto-detect"}

var languages = []Language{
	{"af", "Afrikaans"}, {"ar", "Arabic"}, {"hy", "Armenian"}, {"az", "Azerbaijani"},
	{"be", "Belarusian"}, {"bs", "Bosnian"}, {"bg", "Bulgarian"}, {"ca", "Catalan"},
	{"zh", "Chinese"}, {"hr", "Croatian"}, {"cs", "Czech"}, {"da", "Danish"},
	{"nl", "Dutch"}, {"en", "English"}, {"et", "Estonian"}, {"fi", "Finnish"},
	{"fr", "French"}, {"gl", "Galician"}, {"de", "German"}, {"el", "Greek"},
	{"he", "Hebrew"}, {"hi", "Hindi"}, {"hu", "Hungarian"}, {"is", "Icelandic"},
	{"id", "Indonesian"}, {"it", "Italian"}, {"ja", "Japanese"}, {"kn", "Kannada"},
	{"kk", "Kazakh"}, {"ko", "Korean"}, {"lv", "Latvian"}, {"lt", "Lithuanian"},
	{"mk", "Macedonian"}, {"ms", "Malay"}, {"mr", "Marathi"}, {"mi", "Maori"},
	{"ne", "Nepali"}, {"no", "Norwegian"}, {"fa", "Persian"}, {"pl", "Polish"},
	{"pt", "Portuguese"}, {"ro", "Romanian"}, {"ru", "Russian"}, {"sr", "Serbian"},
	{"sk", "Slovak"}, {"sl", "Slovenian"}, {"es", "Spanish"}, {"sw", "Swahili"},
	{"sv", "Swedish"}, {"tl", "Tagalog"}, {"ta", "Tamil"}, {"th", "Thai"},
	{"tr", "Turkish"}, {"uk", "Ukrainian"}, {"ur", "Urdu"}, {"vi", "Vietnamese"},
	{"cy", "Welsh"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(languages)+1)
	m[Auto.Code] = Auto
	for _, l := range languages {
		m[l.Code] = l
	}
	return m
}()

// FromCode returns the Language for code, or Auto when unknown.
func FromCode(code string) Language {
	if l, ok := byCode[code]; ok {
		return l
	}
	return Auto
}

// IsValidCode reports whether code is a supported language or empty.
func IsValidCode(code string) bool {
	_, ok := byCode[code]
	return ok
}

// List returns the supported languages sorted by name, without Auto.
func List() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Label is the display form, e.g. "Italian (it)".
func (l Language) Label() string {
	if l.Code == "" {
		return l.Name
	}
	return l.Name + " (" + l.Code + ")"
}
