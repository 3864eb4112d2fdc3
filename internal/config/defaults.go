package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"name":    "Reminders",
			"version": "1.0.0",
		},
		"store": map[string]interface{}{
			"path":         "~/.mcp-reminders/reminders.db",
			"default_list": "Reminders",
			"lists":        []string{},
		},
		"log": map[string]interface{}{
			"level":  "debug",
			"format": "text",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "~/.mcp-reminders/config.yaml"
}
