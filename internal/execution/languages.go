package execution

import "codejudge/internal/domain"

// LanguageSpec is the per-language recipe: prepare -> compile? -> run.
type LanguageSpec struct {
	ID             domain.Language
	SourceFile     string
	CompileEnabled bool
	// CompileCmd and RunCmd are literal shell fragments, relative to the
	// sandbox submission directory, used as written with no placeholder
	// substitution; neither takes untrusted input, so no quoting beyond the
	// fixed filenames above is required.
	CompileCmd string
	RunCmd     string
}

var languageTable = map[domain.Language]LanguageSpec{
	domain.LanguageCPP: {
		ID:             domain.LanguageCPP,
		SourceFile:     "program.cpp",
		CompileEnabled: true,
		CompileCmd:     "g++ program.cpp -o program -std=c++17",
		RunCmd:         "./program",
	},
	domain.LanguagePython: {
		ID:             domain.LanguagePython,
		SourceFile:     "program.py",
		CompileEnabled: false,
		RunCmd:         "python3 program.py",
	},
	domain.LanguageJava: {
		ID:             domain.LanguageJava,
		SourceFile:     "Main.java",
		CompileEnabled: true,
		CompileCmd:     "javac Main.java",
		RunCmd:         "java Main",
	},
}

// lookupLanguage returns the recipe for lang and whether it is known. Unknown
// languages are the caller's responsibility to reject as BadRequest; this
// package never falls back to C++ semantics for them.
func lookupLanguage(lang domain.Language) (LanguageSpec, bool) {
	spec, ok := languageTable[lang]
	return spec, ok
}
