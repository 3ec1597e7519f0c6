package config

const (
	defaultConfigPath            = "~/.config/tr2epub/config.toml"
	projectConfigName            = "tr2epub.toml"
	defaultPublishingHost        = "www.w3.org"
	defaultOutputDir             = "."
	defaultConverterTimeout      = 300
	defaultLogFormat             = LogFormatAuto
	defaultLogLevel              = "info"
	converterEndpointEnvironment = "TR2EPUB_CONVERTER_ENDPOINT"
)

// Log formats.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Publishing: Publishing{
			Host: defaultPublishingHost,
		},
		Converter: Converter{
			TimeoutSeconds: defaultConverterTimeout,
		},
		Output: Output{
			Dir: defaultOutputDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
