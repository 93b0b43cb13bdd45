package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/recoverykit/models"
	"github.com/kbukum/recoverykit/ollama"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and check the model backend",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	client := ollama.NewClient(a.cfg.Ollama, ollama.WithLogger(a.log))
	manager := models.NewManager(client, nil, models.WithLogger(a.log))
	ctx := cmd.Context()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHECK\tRESULT")
	_, _ = fmt.Fprintf(w, "config\tok\n")

	if !client.TestConnection(ctx) {
		_, _ = fmt.Fprintf(w, "backend\tunreachable (%s)\n", a.cfg.Ollama.BaseURL)
		_ = w.Flush()
		return fmt.Errorf("backend %s unreachable", a.cfg.Ollama.BaseURL)
	}
	_, _ = fmt.Fprintf(w, "backend\treachable (%s)\n", a.cfg.Ollama.BaseURL)

	if _, err := manager.RefreshModels(ctx); err != nil {
		_, _ = fmt.Fprintf(w, "models\t%v\n", err)
		_ = w.Flush()
		return err
	}
	_, _ = fmt.Fprintf(w, "models\t%d available\n", len(manager.AvailableModels()))

	configured := "missing"
	if manager.Has(client.Model()) {
		configured = "present"
	}
	_, _ = fmt.Fprintf(w, "model %s\t%s\n", client.Model(), configured)
	return w.Flush()
}
