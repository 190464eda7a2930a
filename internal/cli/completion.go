package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mltn2v.

Bash:
  $ source <(mltn2v completion bash)

Zsh:
  $ mltn2v completion zsh > "${fpath[1]}/_mltn2v"

Fish:
  $ mltn2v completion fish > ~/.config/fish/completions/mltn2v.fish

PowerShell:
  PS> mltn2v completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

// flagValues lists the fixed choices of enumerated flags for completion.
var flagValues = map[string][]string{
	"format":     {"auto", "matrix", "edgelist", "json"},
	"cache":      {"file", "redis", "none"},
	"backend":    {"file", "redis"},
	"out-format": {"dot", "svg", "pdf", "png", "json"},
	"log-format": {"text", "json", "logfmt"},
	"config":     {"toml", "yaml", "yml"},
}

// registerCompletions attaches value completion to every enumerated flag
// of cmd and its subcommands.
func registerCompletions(cmd *cobra.Command) {
	for name, values := range flagValues {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		if name == "config" {
			_ = cmd.MarkFlagFilename(name, values...)
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
	}
	for _, sub := range cmd.Commands() {
		registerCompletions(sub)
	}
}
