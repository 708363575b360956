// Package secretconfig implements the Pattern & Filter Engine: it compiles
// the ordered extraction regexes, flattens keyword groups into a pickaxe
// query list, and enforces the value/file ignore rules that keep scan
// output free of placeholders, code, and non-secret noise.
package secretconfig

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ExtractionPattern is one ordered rule for pulling a (key, value) pair out
// of a line. Group 1 is always the key; ValueGroup names which capture
// group holds the value.
type ExtractionPattern struct {
	Name       string `json:"name"`
	Regex      string `json:"regex"`
	ValueGroup int    `json:"valueGroup"`
}

// KeywordGroup names a class of secret (password, token, aws, ...) and the
// literal keywords that belong to it. Keywords across all groups, in
// order, form the pickaxe query list.
type KeywordGroup struct {
	GroupName string   `json:"groupName"`
	Patterns  []string `json:"patterns"`
}

// Settings are the scalar tuning knobs for value acceptance.
type Settings struct {
	MinSecretLength int  `json:"minSecretLength"`
	MaxSecretLength int  `json:"maxSecretLength"`
	CaseSensitive   bool `json:"caseSensitive"`
}

// Config is the immutable, compiled configuration driving extraction and
// filtering. Default, LoadAuto and Load return it already compiled; a
// Config built by hand needs Compile before ExtractKeyValue.
type Config struct {
	ExtractionPatterns      []ExtractionPattern `json:"extractionPatterns"`
	KeywordGroups           []KeywordGroup      `json:"keywordGroups"`
	IgnoredValues           []string            `json:"ignoredValues"`
	IgnoredFiles            []string            `json:"ignoredFiles"`
	ExcludeBinaryExtensions []string            `json:"excludeBinaryExtensions"`
	Settings                Settings            `json:"settings"`

	compiled []compiledPattern
}

type compiledPattern struct {
	name       string
	re         *regexp.Regexp
	valueGroup int
}

// Compile parses every ExtractionPattern's regex. A pattern with an invalid
// regex is skipped silently, per spec.
func (c *Config) Compile() {
	c.compiled = c.compiled[:0]
	for _, p := range c.ExtractionPatterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			continue
		}
		c.compiled = append(c.compiled, compiledPattern{name: p.Name, re: re, valueGroup: p.ValueGroup})
	}
}

// ExtractKeyValue runs every compiled pattern against line in order. The
// first pattern whose captured value is not rejected by ShouldIgnoreValue
// wins; a pattern whose value is rejected is skipped in favor of the next
// one, rather than failing extraction outright.
func (c *Config) ExtractKeyValue(line string) (key, value string, ok bool) {
	for _, p := range c.compiled {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if len(m) <= 1 || p.valueGroup >= len(m) {
			continue
		}
		k, v := m[1], m[p.valueGroup]
		if c.ShouldIgnoreValue(v) {
			continue
		}
		return k, v, true
	}
	return "", "", false
}

var codeKeywordPrefixes = []string{"func ", "return ", "if ", "for ", "range ", "make(", "append(", "new(", "len("}

var urlPrefixes = []string{"http://", "https://", "ftp://", "ssh://", "file://", "mailto:"}

var commonKeywords = map[string]bool{
	"password": true, "secret": true, "token": true, "key": true,
	"credential": true, "auth": true, "pass": true, "pwd": true,
}

// ShouldIgnoreValue applies the value-rejection rules in spec order: any
// one hit rejects the value.
func (c *Config) ShouldIgnoreValue(v string) bool {
	if len(v) < c.Settings.MinSecretLength || len(v) > c.Settings.MaxSecretLength {
		return true
	}
	if looksLikeCode(v) {
		return true
	}
	lower := strings.ToLower(v)
	for _, prefix := range urlPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	if commonKeywords[lower] {
		return true
	}
	for _, ignored := range c.IgnoredValues {
		needle, hay := ignored, v
		if !c.Settings.CaseSensitive {
			needle, hay = strings.ToLower(ignored), lower
		}
		if needle != "" && strings.Contains(hay, needle) {
			return true
		}
	}
	return false
}

// looksLikeCode detects the code-shaped values spec.md §4.A rule 2 names:
// balanced-looking bracket pairs, brace-prefixed/suffixed text, more than
// two dots, a capitalized dotted identifier (package.Export) when there is
// exactly one dot, or a leading keyword from a small list of common
// statement starters.
func looksLikeCode(v string) bool {
	hasParen := strings.Contains(v, "(") && strings.Contains(v, ")")
	hasBracket := strings.Contains(v, "[") && strings.Contains(v, "]")
	if hasParen || hasBracket {
		return true
	}
	if strings.HasPrefix(v, "{") || strings.HasSuffix(v, "}") {
		return true
	}

	dots := strings.Count(v, ".")
	if dots > 2 {
		return true
	}
	if dots == 1 {
		parts := strings.SplitN(v, ".", 2)
		if len(parts[0]) > 0 && len(parts[1]) > 0 && isUpperASCII(parts[1][0]) && isSimpleIdent(parts[0]) {
			return true
		}
	}

	for _, prefix := range codeKeywordPrefixes {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}

func isUpperASCII(b byte) bool { return b >= 'A' && b <= 'Z' }

func isSimpleIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}

// ShouldIgnoreFile reports whether path matches any IgnoredFiles pattern.
// Three shapes are recognized: "prefix/**" (directory-rooted glob),
// "*.ext" (extension match), and a trailing-slash directory prefix;
// anything else is compared for exact equality.
func (c *Config) ShouldIgnoreFile(path string) bool {
	for _, pattern := range c.IgnoredFiles {
		if matchFilePattern(pattern, path) {
			return true
		}
	}
	return false
}

func matchFilePattern(pattern, path string) bool {
	switch {
	case strings.Contains(pattern, "**"):
		prefix := strings.SplitN(pattern, "**", 2)[0]
		return strings.HasPrefix(path, prefix)
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(path, pattern[1:])
	case strings.HasSuffix(pattern, "/"):
		return strings.HasPrefix(path, pattern)
	default:
		return path == pattern
	}
}

// AllKeywords flattens every KeywordGroup's Patterns, in declared order,
// into the pickaxe query list.
func (c *Config) AllKeywords() []string {
	var out []string
	for _, g := range c.KeywordGroups {
		out = append(out, g.Patterns...)
	}
	return out
}

// TypeForKey returns the GroupName of the first KeywordGroup whose
// Patterns contains key exactly, or "unknown" if none does.
func (c *Config) TypeForKey(key string) string {
	for _, g := range c.KeywordGroups {
		for _, p := range g.Patterns {
			if p == key {
				return g.GroupName
			}
		}
	}
	return "unknown"
}

// Save writes c as indented JSON to path.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Load reads and compiles a Config from path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	return loadFrom(f)
}

func loadFrom(r io.Reader) (*Config, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg := Default()
	applyCamelOrSnake(raw, "extractionPatterns", "extraction_patterns", &cfg.ExtractionPatterns)
	if v, ok := firstPresent(raw, "extractionPatterns", "extraction_patterns"); ok {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(v, &items); err == nil && len(items) == len(cfg.ExtractionPatterns) {
			for i, item := range items {
				applyCamelOrSnake(item, "valueGroup", "value_group", &cfg.ExtractionPatterns[i].ValueGroup)
			}
		}
	}
	applyCamelOrSnake(raw, "keywordGroups", "keyword_groups", &cfg.KeywordGroups)
	applyCamelOrSnake(raw, "ignoredValues", "ignored_values", &cfg.IgnoredValues)
	applyCamelOrSnake(raw, "ignoredFiles", "ignored_files", &cfg.IgnoredFiles)
	applyCamelOrSnake(raw, "excludeBinaryExtensions", "exclude_binary_extensions", &cfg.ExcludeBinaryExtensions)

	if settingsRaw, ok := firstPresent(raw, "settings"); ok {
		var s map[string]json.RawMessage
		if err := json.Unmarshal(settingsRaw, &s); err == nil {
			applyCamelOrSnake(s, "minSecretLength", "min_secret_length", &cfg.Settings.MinSecretLength)
			applyCamelOrSnake(s, "maxSecretLength", "max_secret_length", &cfg.Settings.MaxSecretLength)
			applyCamelOrSnake(s, "caseSensitive", "case_sensitive", &cfg.Settings.CaseSensitive)
		}
	}

	cfg.Compile()
	return cfg, nil
}

func firstPresent(m map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// applyCamelOrSnake unmarshals whichever of camel/snake is present in raw
// into dst, leaving dst's zero value (the default) untouched if neither key
// is present.
func applyCamelOrSnake[T any](raw map[string]json.RawMessage, camel, snake string, dst *T) {
	v, ok := firstPresent(raw, camel, snake)
	if !ok {
		return
	}
	_ = json.Unmarshal(v, dst)
}

// autoDiscoverPaths are searched, in order, by LoadAuto.
func autoDiscoverPaths() []string {
	paths := []string{"patterns.json", filepath.Join("config", "patterns.json")}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "git-secret-scanner", "patterns.json"))
	}
	return paths
}

// LoadAuto tries each well-known patterns.json location in turn, falling
// back to Default if none exists.
func LoadAuto() (*Config, error) {
	for _, p := range autoDiscoverPaths() {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	cfg := Default()
	cfg.Compile()
	return cfg, nil
}
