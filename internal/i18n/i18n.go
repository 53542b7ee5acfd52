package i18n

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported languages
const (
	LangEnglish = "en"
	LangSpanish = "es"
	LangGerman  = "de"
	LangKorean  = "ko"
)

// EnvLanguage overrides the locale environment when set
const EnvLanguage = "GEOFRONT_CLI_LANG"

var (
	// Global printer for internationalization
	printer *message.Printer
	current = LangEnglish

	// Synchronization for thread-safe access
	initI18nOnce sync.Once
	printerMu    sync.RWMutex

	supportedLanguages = map[string]language.Tag{
		LangEnglish: language.English,
		LangSpanish: language.Spanish,
		LangGerman:  language.German,
		LangKorean:  language.Korean,
	}
)

// InitI18n selects the output language thread-safely
func InitI18n(langFlag string) {
	initI18nOnce.Do(registerMessages)

	// CLI flag > env var > locale > default
	lang := determineLang(langFlag)

	tag, exists := supportedLanguages[lang]
	if !exists {
		lang, tag = LangEnglish, language.English
	}

	printerMu.Lock()
	printer = message.NewPrinter(tag)
	current = lang
	printerMu.Unlock()
}

// Current returns the selected language code
func Current() string {
	printerMu.RLock()
	defer printerMu.RUnlock()
	return current
}

// determineLang determines which language to use based on priority:
// 1. CLI flag (--lang)
// 2. GEOFRONT_CLI_LANG
// 3. Standard locale environment variables (LC_ALL, LANG)
// 4. Default (English)
func determineLang(langFlag string) string {
	if langFlag != "" {
		return normalizeLanguage(langFlag)
	}

	for _, env := range []string{EnvLanguage, "LC_ALL", "LANG"} {
		if v := os.Getenv(env); v != "" {
			return normalizeLanguage(v)
		}
	}

	return LangEnglish
}

// normalizeLanguage maps locale strings such as "de_DE.UTF-8" to a supported code
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))

	switch {
	case strings.HasPrefix(lang, "en") || lang == "english":
		return LangEnglish
	case strings.HasPrefix(lang, "es") || lang == "spanish" || lang == "español":
		return LangSpanish
	case strings.HasPrefix(lang, "de") || lang == "german" || lang == "deutsch":
		return LangGerman
	case strings.HasPrefix(lang, "ko") || lang == "korean" || lang == "한국어":
		return LangKorean
	default:
		return LangEnglish
	}
}

// T returns a localized string using the global printer thread-safely
func T(key string, args ...interface{}) string {
	printerMu.RLock()
	p := printer
	printerMu.RUnlock()

	if p == nil {
		InitI18n("")
		printerMu.RLock()
		p = printer
		printerMu.RUnlock()
	}

	return p.Sprintf(key, args...)
}

// DetectLanguageFromArgs finds --lang before cobra parses flags, so command
// help text is already translated.
func DetectLanguageFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--lang" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--lang=") {
			return strings.TrimPrefix(arg, "--lang=")
		}
	}
	return ""
}

func registerMessages() {
	for tag, msgs := range catalog {
		for key, msg := range msgs {
			message.SetString(tag, key, msg)
		}
	}
}
