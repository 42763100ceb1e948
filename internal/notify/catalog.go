// Пакет notify — тексты уведомлений и доставка через webhook.
// catalog.go — каталог текстов уведомлений (en, ru).
// Язык выбирается по Accept-Language; отсутствующий ключ — fallback на en.
package notify

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// DefaultLang — язык по умолчанию.
const DefaultLang = "en"

var (
	// supported — поддерживаемые языки уведомлений.
	supported = []language.Tag{language.English, language.Russian}

	matcher = language.NewMatcher(supported)
)

// MatchLanguage определяет язык уведомлений из Accept-Language.
// Возвращает "en" или "ru".
func MatchLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return DefaultLang
	}
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	base, _ := tag.Base()
	if strings.HasPrefix(base.String(), "ru") {
		return "ru"
	}
	return DefaultLang
}

// Catalog — тексты уведомлений по языкам.
type Catalog struct {
	messages map[string]map[string]string // lang → key → текст
}

// LoadCatalog загружает встроенные каталоги locales/*.json.
func LoadCatalog() (*Catalog, error) {
	c := &Catalog{messages: make(map[string]map[string]string)}
	for _, tag := range supported {
		lang := tag.String()
		data, err := localesFS.ReadFile("locales/" + lang + ".json")
		if err != nil {
			return nil, fmt.Errorf("чтение каталога %s: %w", lang, err)
		}
		var msgs map[string]string
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("разбор каталога %s: %w", lang, err)
		}
		c.messages[lang] = msgs
	}
	if err := c.checkVerbs(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkVerbs сверяет директивы формата переводов с en:
// Translatef передаёт одни и те же аргументы во все языки.
func (c *Catalog) checkVerbs() error {
	base := c.messages[DefaultLang]
	for lang, msgs := range c.messages {
		if lang == DefaultLang {
			continue
		}
		for key, msg := range msgs {
			want, ok := base[key]
			if !ok {
				continue
			}
			if got, exp := formatVerbs(msg), formatVerbs(want); got != exp {
				return fmt.Errorf("каталог %s, ключ %s: директивы %q, в en %q", lang, key, got, exp)
			}
		}
	}
	return nil
}

// formatVerbs возвращает последовательность директив формата, например "ss".
func formatVerbs(format string) string {
	var verbs []byte
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		for i < len(format) && strings.IndexByte("+-# 0123456789.", format[i]) >= 0 {
			i++
		}
		if i < len(format) && format[i] != '%' {
			verbs = append(verbs, format[i])
		}
	}
	return string(verbs)
}

// Has проверяет наличие ключа в каталоге языка или в en.
func (c *Catalog) Has(lang, key string) bool {
	if _, ok := c.messages[lang][key]; ok {
		return true
	}
	_, ok := c.messages[DefaultLang][key]
	return ok
}

// Translate возвращает текст по ключу. Неизвестный ключ возвращается как есть.
func (c *Catalog) Translate(lang, key string) string {
	if msg, ok := c.messages[lang][key]; ok {
		return msg
	}
	if msg, ok := c.messages[DefaultLang][key]; ok {
		return msg
	}
	return key
}

// Translatef возвращает текст по ключу с подстановкой аргументов.
func (c *Catalog) Translatef(lang, key string, args ...any) string {
	// Директивы сверены с en при загрузке каталога.
	return fmt.Sprintf(c.Translate(lang, key), args...) //nolint:govet // формат из встроенного каталога
}
