// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.finlit.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable prompt text with embedded defaults
package file
