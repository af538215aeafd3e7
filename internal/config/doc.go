// Package config handles configuration loading for mingle-client.
//
// # Overview
//
// Configuration is loaded from a YAML file, or a TOML file when the path
// ends in .toml. Keys missing from the file keep the values from Default().
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from MINGLE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/mingle/client.yaml
//  3. ~/.config/mingle/client.yaml
//
// `mingle-client init` writes the defaults to that location.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	session:
//	  token: "${MINGLE_SESSION_TOKEN}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to an empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	router:
//	  match_cooldown: "5s"
//	  message_cooldown: "3s"
//	  mute_timeout: "3s"
//	  sweep_interval: "1m"   # "0s" disables the dedup sweep
//
// # Configuration Sections
//
// Storage:
//
//	storage:
//	  driver: "sqlite"                          # sqlite, memory
//	  path: "~/.local/share/mingle/client.db"
//
// Bounded cache:
//
//	cache:
//	  max_active_chats: 5
//	  max_recent_profiles: 20
//
// Mute lookups (omit base_url to disable):
//
//	mute:
//	  base_url: "https://api.example.com"
//	  token: "${MINGLE_API_TOKEN}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
