package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgard/chatbots/internal/chatbot"
)

var (
	processBots []string
	processFile string
)

var processCmd = &cobra.Command{
	Use:   "process [message...]",
	Short: "Tokenize messages offline and print each bot's responses as JSON",
	Long: `process runs the given messages through the loaded bots and prints the
non-empty results. Messages come from the arguments, from --file, or one per
line on standard input.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringSliceVar(&processBots, "bot", nil, "only use these bots (repeatable)")
	processCmd.Flags().StringVarP(&processFile, "file", "f", "", "read messages from a file, one per line")
	rootCmd.AddCommand(processCmd)
}

// processOutput is the JSON shape of one bot's result.
type processOutput struct {
	Bot       string             `json:"bot"`
	Responses []chatbot.Response `json:"responses"`
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	mgr, err := newManager(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer mgr.Close()

	var bots []*chatbot.Bot
	for _, title := range processBots {
		b, err := mgr.Find(title)
		if err != nil {
			return err
		}
		bots = append(bots, b)
	}

	messages := args
	if len(messages) == 0 {
		messages, err = readMessages(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	results, err := mgr.HandleMessages(ctx, bots, messages)
	if err != nil {
		return err
	}

	out := make([]processOutput, 0, len(results))
	for _, r := range results {
		out = append(out, processOutput{Bot: r.Bot.Title, Responses: r.Responses})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readMessages(stdin io.Reader) ([]string, error) {
	r := stdin
	if processFile != "" {
		f, err := os.Open(processFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", processFile, err)
		}
		defer f.Close()
		r = f
	}

	var messages []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		messages = append(messages, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}
