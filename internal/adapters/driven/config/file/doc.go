// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration in ~/.tinyrag/config.toml
//   - PromptStore: user-editable prompt templates in ~/.tinyrag/prompts
package file
