package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	agent "github.com/hrygo/angelo/ai/agents"
	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/ai/routing"
)

type askResult struct {
	Intent routing.WireIntent `json:"intent"`
	Source string             `json:"source"`
	Rule   string             `json:"rule,omitempty"`
}

var askCmd = &cobra.Command{
	Use:   "ask <text>",
	Short: "Print the intent an utterance routes to, as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, _ := cmd.Flags().GetString("context")
		useLLM, _ := cmd.Flags().GetBool("llm")
		text := strings.Join(args, " ")

		p, err := loadProfile()
		if err != nil {
			return err
		}
		directory, err := loadDirectory(p)
		if err != nil {
			return err
		}
		if selected != "" && !directory.HasMember(selected) {
			return fmt.Errorf("unknown member %q", selected)
		}

		var bridge *agent.Bridge
		if useLLM {
			setupLogger(p)
			assistant, err := newAssistant(p, directory)
			if err != nil {
				return err
			}
			defer assistant.Close()
			if assistant.Bridge == nil {
				return fmt.Errorf("--llm needs a configured LLM (set ANGELO_LLM_API_KEY)")
			}
			bridge = assistant.Bridge
		}

		res := ask(cmd.Context(), routing.NewRouter(directory), bridge, text, selected)
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	askCmd.Flags().String("context", "", "member id currently in the conversation, e.g. m1")
	askCmd.Flags().Bool("llm", false, "ask the LLM first and fall back to the rules")
}

// ask resolves text the way a turn does, without touching any session.
func ask(ctx context.Context, router *routing.Router, bridge *agent.Bridge, text, selected string) askResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if bridge != nil {
		if res, ok := bridge.ResolveIntent(ctx, agent.Request{Text: text, SelectedContext: selected}); ok {
			if _, unknown := res.Intent.(routing.Unknown); !unknown {
				return askResult{Intent: routing.ToWire(res.Intent), Source: conversation.SourceLLM}
			}
		}
	}
	intent, rule := router.Match(text, selected)
	return askResult{Intent: routing.ToWire(intent), Source: conversation.SourceRules, Rule: rule}
}
