package repl

import (
	"slices"
	"strings"
)

// Languages lists the language tags accepted by the /lang command.
var Languages = []string{
	"javascript", "typescript", "python", "jsx", "java", "cpp", "html",
	"css", "sql", "php", "go", "rust", "other",
}

const minDetectLength = 20

type languageRule struct {
	language string
	match    func(code string) bool
}

func containsAny(code string, needles ...string) bool {
	return slices.ContainsFunc(needles, func(n string) bool { return strings.Contains(code, n) })
}

var languageRules = []languageRule{
	{"javascript", func(c string) bool {
		return (strings.Contains(c, "import") && strings.Contains(c, "from")) ||
			containsAny(c, "require(", "export", "console.log", "function", "const ", "let ", "var ")
	}},
	{"python", func(c string) bool {
		return containsAny(c, "def ", "import ", "print(", "if __name__") ||
			(strings.Contains(c, "class ") && strings.Contains(c, ":"))
	}},
	{"java", func(c string) bool {
		return containsAny(c, "public class", "public static void main", "system.out.println")
	}},
	{"cpp", func(c string) bool {
		return containsAny(c, "#include", "std::", "cout <<")
	}},
	{"jsx", func(c string) bool {
		return containsAny(c, "jsx", "usestate", "useeffect", "return (") ||
			(strings.Contains(c, "<") && strings.Contains(c, "/>"))
	}},
	{"html", func(c string) bool {
		return containsAny(c, "<!doctype", "<html", "<body", "<div")
	}},
	{"css", func(c string) bool {
		return strings.Contains(c, "{") && strings.Contains(c, "}") &&
			containsAny(c, "color:", "font-", "margin:")
	}},
}

// DetectLanguage guesses the language of a snippet from keyword heuristics.
// The rules are checked in order and javascript is the fallback.
// Snippets of 20 characters or less are not detected and keep current.
func DetectLanguage(code, current string) string {
	if len(strings.TrimSpace(code)) <= minDetectLength {
		return current
	}

	lower := strings.ToLower(code)
	for _, rule := range languageRules {
		if !rule.match(lower) {
			continue
		}
		if rule.language == "javascript" && containsAny(lower, "interface", ": string", ": number") {
			return "typescript"
		}
		return rule.language
	}
	return "javascript"
}
