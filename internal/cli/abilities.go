package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Foreman/internal/abilities"
)

// abilityDescriptions — краткие описания встроенных abilities.
var abilityDescriptions = map[string]string{
	"delay":   `Wait {"duration_sec": n}, reporting status`,
	"echo":    "Return data unchanged",
	"http":    `HTTP request from {"method","url","headers","body","timeout_sec"}`,
	"reverse": "Reverse UTF-8 text",
	"upper":   "Upper-case text",
}

// NewAbilitiesCmd создаёт команду списка встроенных abilities.
func NewAbilitiesCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "abilities",
		Short: "List built-in worker abilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			type ability struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}

			names := abilities.Names()
			rows := make([][]string, len(names))
			list := make([]ability, len(names))
			for i, name := range names {
				rows[i] = []string{name, abilityDescriptions[name]}
				list[i] = ability{Name: name, Description: abilityDescriptions[name]}
			}

			out.Print([]string{"NAME", "DESCRIPTION"}, rows, list)
			return nil
		},
	}
}
