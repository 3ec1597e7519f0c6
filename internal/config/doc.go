// Package config loads, normalizes, and validates tr2epub settings.
//
// Settings come from an optional TOML file (by default
// ~/.config/tr2epub/config.toml, else tr2epub.toml in the working
// directory) layered over repository defaults. The converter endpoint falls
// back to the TR2EPUB_CONVERTER_ENDPOINT environment variable.
package config
