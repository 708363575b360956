package secretconfig

// Default returns the built-in extraction patterns, keyword groups, and
// ignore lists, ported from the tool's original default configuration.
// It is compiled already — callers can use it immediately.
func Default() *Config {
	cfg := &Config{
		ExtractionPatterns: []ExtractionPattern{
			{
				Name:       "key_equals_value",
				Regex:      `^\s*([a-zA-Z_][\w.$/-]*)\s*=\s*(.+)$`,
				ValueGroup: 2,
			},
			{
				Name:       "yaml_colon",
				Regex:      `^\s*([a-zA-Z_][\w._-]*)\s*:\s+['"]?([^'"\n=]+)['"]?\s*$`,
				ValueGroup: 2,
			},
			{
				Name:       "json_quoted",
				Regex:      `"([a-zA-Z_][\w._]*)"\s*:\s*"([^"]+)"`,
				ValueGroup: 2,
			},
			{
				Name:       "export_env",
				Regex:      `^\s*export\s+([A-Z_][A-Z0-9_]*)\s*=\s*['"]?([^'"\n]+)['"]?`,
				ValueGroup: 2,
			},
		},
		KeywordGroups: []KeywordGroup{
			{GroupName: "password", Patterns: []string{"password", "passwd", "pwd", "pass", "mot_de_passe"}},
			{GroupName: "secret", Patterns: []string{"secret", "client_secret", "app_secret", "api_secret"}},
			{GroupName: "api_key", Patterns: []string{"api_key", "apikey", "api-key"}},
			{GroupName: "token", Patterns: []string{"token", "access_token", "auth_token", "bearer"}},
			{GroupName: "credentials", Patterns: []string{"credential", "credentials", "auth"}},
			{GroupName: "private_key", Patterns: []string{"private_key", "privatekey", "private-key", "rsa_private"}},
			{GroupName: "connection_string", Patterns: []string{"connection_string", "connectionstring", "conn_str", "database_url", "db_url"}},
			{GroupName: "oauth", Patterns: []string{"oauth", "client_id", "client_secret", "refresh_token"}},
			{GroupName: "aws", Patterns: []string{"aws_access_key", "aws_secret", "aws_key"}},
			{GroupName: "encryption", Patterns: []string{"encryption_key", "encrypt_key", "aes_key", "cipher"}},
		},
		IgnoredValues: []string{
			"<empty>", "<none>", "<null>", "null", "nil", "undefined", "none", "N/A",
			"${", "{{", "%s", "<value>", "<your_", "[your_",
			"PLACEHOLDER", "your_", "YOUR_", "example", "EXAMPLE", "sample",
			"xxx", "XXX", "***", "----", "____",
			"REMOVED", "REDACTED", "HIDDEN", "MASKED",
			"changeme", "CHANGEME", "change_me", "TODO", "FIXME",
			"default", "DEFAULT",
		},
		IgnoredFiles: []string{
			"*.md", "*.txt", "*.rst",
			"*.lock",
			"*.go", "*.js", "*.ts", "*.jsx", "*.tsx", "*.py", "*.java", "*.rb",
			"*.php", "*.c", "*.cpp", "*.h", "*.cs", "*.swift", "*.kt", "*.rs", "*.scala",
			"*.json", "*.jsonl",
			"node_modules/**", "vendor/**", ".git/**",
			"*.min.js", "*.min.css",
		},
		ExcludeBinaryExtensions: []string{
			".jar", ".war", ".zip", ".tar", ".gz", ".rar",
			".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg",
			".pdf", ".doc", ".docx", ".xls", ".xlsx",
			".exe", ".dll", ".so", ".dylib",
			".class", ".pyc", ".o", ".a",
		},
		Settings: Settings{
			MinSecretLength: 3,
			MaxSecretLength: 500,
			CaseSensitive:   false,
		},
	}
	cfg.Compile()
	return cfg
}
