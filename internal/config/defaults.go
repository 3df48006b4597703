package config

import "github.com/spf13/viper"

// Settings defaults
const (
	DefaultCompletionResponse  = "DONE"
	DefaultMaximumIterations   = 10
	DefaultOutputTruncateChars = 5000
	DefaultStreamAgentOutput   = true
)

// NewDefaults returns Settings populated with the default values.
func NewDefaults() Settings {
	return Settings{
		CompletionResponse:  DefaultCompletionResponse,
		MaximumIterations:   DefaultMaximumIterations,
		OutputTruncateChars: DefaultOutputTruncateChars,
		StreamAgentOutput:   DefaultStreamAgentOutput,
	}
}

// setDefaults sets all default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("completionResponse", DefaultCompletionResponse)
	v.SetDefault("maximumIterations", DefaultMaximumIterations)
	v.SetDefault("outputTruncateChars", DefaultOutputTruncateChars)
	v.SetDefault("streamAgentOutput", DefaultStreamAgentOutput)
	v.SetDefault("includeIterationCountInPrompt", false)
}
