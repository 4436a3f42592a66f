package translit

// ScriptName identifies a source alphabet the engine can detect.
type ScriptName string

const (
	ScriptUkrainian ScriptName = "uk"
	ScriptRussian   ScriptName = "ru"
)

// Script is an immutable character table plus the letters that only occur in this alphabet.
type Script struct {
	Name      ScriptName
	Exclusive []rune
	Table     map[rune]string
}

// Based on the Ukrainian national transliteration (2010) without positional rules.
var ukrainian = Script{
	Name:      ScriptUkrainian,
	Exclusive: []rune{'і', 'ї', 'є', 'ґ'},
	Table: map[rune]string{
		'а': "a", 'б': "b", 'в': "v", 'г': "h", 'ґ': "g", 'д': "d", 'е': "e", 'є': "ie",
		'ж': "zh", 'з': "z", 'и': "y", 'і': "i", 'ї': "i", 'й': "i", 'к': "k", 'л': "l",
		'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
		'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch", 'ь': "", 'ю': "iu",
		'я': "ia", '\'': "", 'ʼ': "", '’': "",
	},
}

var russian = Script{
	Name:      ScriptRussian,
	Exclusive: []rune{'ы', 'э', 'ё', 'ъ'},
	Table: map[rune]string{
		'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo", 'ж': "zh",
		'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
		'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts",
		'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
		'я': "ya",
	},
}

// Scripts returns the built-in scripts in detection order.
func Scripts() []Script {
	return []Script{ukrainian, russian}
}

// LookupScript returns the built-in script with the given name.
func LookupScript(name ScriptName) (Script, bool) {
	for _, s := range Scripts() {
		if s.Name == name {
			return s, true
		}
	}
	return Script{}, false
}
