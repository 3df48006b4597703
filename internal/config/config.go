// Package config resolves the harness settings from the layered settings
// files and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/yarlson/ralph-loop/internal/state"
)

// FailAction controls how a guardrail failure is folded into the next prompt.
type FailAction string

const (
	// FailActionAppend appends the failure summary to the prompt.
	FailActionAppend FailAction = "APPEND"
	// FailActionPrepend puts the failure summary in front of the prompt.
	FailActionPrepend FailAction = "PREPEND"
	// FailActionReplace replaces the prompt with the failure summary.
	FailActionReplace FailAction = "REPLACE"
)

// validFailActions is the set of valid fail actions.
var validFailActions = map[FailAction]bool{
	FailActionAppend:  true,
	FailActionPrepend: true,
	FailActionReplace: true,
}

// IsValid returns true if the action is a valid value.
func (a FailAction) IsValid() bool {
	return validFailActions[a]
}

// Settings holds the fully resolved harness configuration.
// It is validated once by Resolve and treated as read-only afterwards.
type Settings struct {
	Prompt                        string         `mapstructure:"prompt" json:"-" yaml:"prompt,omitempty"`
	CompletionResponse            string         `mapstructure:"completionResponse" json:"completionResponse" yaml:"completionResponse"`
	MaximumIterations             int            `mapstructure:"maximumIterations" json:"maximumIterations" yaml:"maximumIterations"`
	OutputTruncateChars           int            `mapstructure:"outputTruncateChars" json:"outputTruncateChars" yaml:"outputTruncateChars"`
	StreamAgentOutput             bool           `mapstructure:"streamAgentOutput" json:"streamAgentOutput" yaml:"streamAgentOutput"`
	IncludeIterationCountInPrompt bool           `mapstructure:"includeIterationCountInPrompt" json:"includeIterationCountInPrompt" yaml:"includeIterationCountInPrompt"`
	Agent                         AgentConfig    `mapstructure:"agent" json:"agent" yaml:"agent"`
	Guardrails                    []Guardrail    `mapstructure:"guardrails" json:"guardrails" yaml:"guardrails"`
	SCM                           *SCMConfig     `mapstructure:"scm" json:"scm,omitempty" yaml:"scm,omitempty"`
	Reviews                       *ReviewsConfig `mapstructure:"reviews" json:"reviews,omitempty" yaml:"reviews,omitempty"`
	Events                        *EventsConfig  `mapstructure:"events" json:"events,omitempty" yaml:"events,omitempty"`
}

// AgentConfig describes how the agent process is invoked.
type AgentConfig struct {
	Command string   `mapstructure:"command" json:"command" yaml:"command"`
	Flags   []string `mapstructure:"flags" json:"flags" yaml:"flags"`

	// NonReplArgs and Delivery are derived from Command by ResolveAgent and
	// overwrite anything read from the settings files.
	NonReplArgs []string       `mapstructure:"nonReplArgs" json:"-" yaml:"nonReplArgs"`
	Delivery    PromptDelivery `mapstructure:"delivery" json:"-" yaml:"delivery"`
}

// Guardrail is a verification command run after every agent invocation.
type Guardrail struct {
	Command    string     `mapstructure:"command" json:"command" yaml:"command"`
	FailAction FailAction `mapstructure:"failAction" json:"failAction" yaml:"failAction"`
	Hint       string     `mapstructure:"hint" json:"hint,omitempty" yaml:"hint,omitempty"`
}

// SCMConfig holds the post-success source-control tasks.
type SCMConfig struct {
	Command string   `mapstructure:"command" json:"command" yaml:"command"`
	Tasks   []string `mapstructure:"tasks" json:"tasks" yaml:"tasks"`
}

// Enabled reports whether there is anything to run.
func (c *SCMConfig) Enabled() bool {
	return c != nil && strings.TrimSpace(c.Command) != "" && len(c.Tasks) > 0
}

// EventsConfig configures the optional loop event publisher.
type EventsConfig struct {
	Backend string `mapstructure:"backend" json:"backend" yaml:"backend"`
	URL     string `mapstructure:"url" json:"url,omitempty" yaml:"url,omitempty"`
	Subject string `mapstructure:"subject" json:"subject,omitempty" yaml:"subject,omitempty"`
}

// Options carries the command-line inputs to Resolve. Pointer fields are only
// applied when set.
type Options struct {
	// SettingsPath is the base settings file. The local override file is read
	// from the same directory. Defaults to .ralph/settings.json.
	SettingsPath string

	// Prompt and PromptFile are mutually exclusive; exactly one is required.
	Prompt     string
	PromptFile string

	MaximumIterations  *int
	CompletionResponse *string
	StreamAgentOutput  *bool
}

// Resolve loads, merges, overrides and validates the settings. It fails fast
// with a *ValidationError listing every problem found.
func Resolve(opts Options) (*Settings, error) {
	if err := opts.validatePromptSource(); err != nil {
		return nil, err
	}
	return resolve(opts, true)
}

// Inspect resolves the settings files and overrides without a prompt. It is
// used to display the effective configuration.
func Inspect(opts Options) (*Settings, error) {
	opts.Prompt, opts.PromptFile = "", ""
	return resolve(opts, false)
}

func resolve(opts Options, requirePrompt bool) (*Settings, error) {
	settingsPath := opts.SettingsPath
	if settingsPath == "" {
		settingsPath = state.Layout{}.SettingsPath()
	}

	v, err := Load(settingsPath)
	if err != nil {
		return nil, err
	}
	opts.apply(v)

	var prompt string
	if requirePrompt {
		prompt, err = opts.loadPrompt()
		if err != nil {
			return nil, err
		}
		v.Set("prompt", prompt)
	}

	problems := validate(v.AllSettings(), requirePrompt)
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	settings.Prompt = prompt
	if settings.Reviews != nil {
		settings.Reviews.PromptsOmitted = !v.IsSet("reviews.prompts")
	}
	settings.Agent.NonReplArgs, settings.Agent.Delivery = ResolveAgent(settings.Agent.Command)

	return settings, nil
}

// Load reads the base settings file and deep-merges the local override file
// next to it. Missing files are skipped; defaults fill the gaps.
func Load(settingsPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	if fileExists(settingsPath) {
		v.SetConfigFile(settingsPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid JSON in settings file %s: %w", settingsPath, err)
		}
	}

	localPath := state.LocalSettingsPath(settingsPath)
	if fileExists(localPath) {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("invalid JSON in settings file %s: %w", localPath, err)
		}
	}

	return v, nil
}

func (o Options) validatePromptSource() error {
	hasPrompt := o.Prompt != ""
	hasPromptFile := o.PromptFile != ""

	if hasPrompt && hasPromptFile {
		return errors.New("cannot specify both --prompt and --prompt-file")
	}
	if !hasPrompt && !hasPromptFile {
		return errors.New("must specify prompt (--prompt or --prompt-file)")
	}
	return nil
}

func (o Options) loadPrompt() (string, error) {
	if o.PromptFile == "" {
		return o.Prompt, nil
	}

	data, err := os.ReadFile(o.PromptFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt file not found: %s", o.PromptFile)
		}
		return "", fmt.Errorf("cannot read prompt file %s: %w", o.PromptFile, err)
	}
	return string(data), nil
}

func (o Options) apply(v *viper.Viper) {
	if o.MaximumIterations != nil {
		v.Set("maximumIterations", *o.MaximumIterations)
	}
	if o.CompletionResponse != nil {
		v.Set("completionResponse", *o.CompletionResponse)
	}
	if o.StreamAgentOutput != nil {
		v.Set("streamAgentOutput", *o.StreamAgentOutput)
	}
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
