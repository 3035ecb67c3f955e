package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kumar8074/SpectraRAG/config"
	"github.com/kumar8074/SpectraRAG/logging"
)

var askFile string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question, optionally grounded in a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, closeLog := logging.Setup(cfg.LogFile, cfg.SlogLevel())
		defer func() { _ = closeLog() }()

		rag, err := newInstance(cfg, logger)
		if err != nil {
			return err
		}

		sessionID, err := rag.CreateSession()
		if err != nil {
			return err
		}
		defer func() { _ = rag.DestroySession(sessionID) }()

		ctx := cmd.Context()
		if askFile != "" {
			data, err := os.ReadFile(askFile)
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			res, err := rag.UploadDocument(ctx, sessionID, filepath.Base(askFile), data)
			if err != nil {
				return fmt.Errorf("ingest document: %w", err)
			}
			logger.Info("document ingested", "chunks", res.ChunkCount)
		}

		res, err := rag.Ask(ctx, sessionID, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
		if len(res.Sources) > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Sources:")
			for _, src := range res.Sources {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s (score %.3f)\n", src.Source, src.Score)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "document to ingest before asking")
}
