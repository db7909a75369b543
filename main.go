package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/pyscope/internal/config"
	"github.com/duynguyendang/pyscope/internal/manager"
	"github.com/duynguyendang/pyscope/pkg/analyzer"
	"github.com/duynguyendang/pyscope/pkg/export"
	"github.com/duynguyendang/pyscope/pkg/mcp"
	"github.com/duynguyendang/pyscope/pkg/server"
	"github.com/duynguyendang/pyscope/pkg/service/ai"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "pyscope",
		Short: "Source structure and call graph analysis service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	rootCmd.AddCommand(serveCmd(), analyzeCmd(), mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.Default(), nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			mgr := manager.NewSourceManager(cfg.DataDir)

			var gemini *ai.GeminiService
			if os.Getenv("GEMINI_API_KEY") != "" {
				gemini, err = ai.NewGeminiService(cmd.Context(), os.Getenv("GEMINI_API_KEY"))
				if err != nil {
					log.Printf("AI service unavailable: %v", err)
					gemini = nil
				} else {
					defer gemini.Close()
				}
			}

			addr := cfg.Addr
			if port := os.Getenv("PORT"); port != "" {
				addr = ":" + port
			}

			fmt.Printf("Starting REST API Server on %s. Data directory: %s\n", addr, cfg.DataDir)
			srv := server.NewServer(mgr, cfg.DefaultLanguage, gemini)
			srv.MaxSourceBytes = cfg.MaxSourceBytes
			return srv.Run(addr)
		},
	}
	return cmd
}

func analyzeCmd() *cobra.Command {
	var langName string
	var graphOut string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a single source file and print its structure as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			lang := analyzer.LanguageForPath(path)
			if langName != "" {
				if lang = analyzer.LanguageByName(langName); lang == nil {
					return fmt.Errorf("unknown language: %s", langName)
				}
			}

			tree, index, err := analyzer.New(lang).Analyze(context.Background(), content)
			if err != nil {
				return err
			}

			if graphOut != "" {
				if err := export.SaveD3Graph(export.FromTree(tree, index), graphOut); err != nil {
					return err
				}
				fmt.Printf("Graph written to %s\n", graphOut)
			}

			out, err := json.MarshalIndent(tree, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&langName, "lang", "", "override language detection (python, go, javascript, typescript)")
	cmd.Flags().StringVar(&graphOut, "graph", "", "also write the call graph in D3 format to this file")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on Stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mgr := manager.NewSourceManager(cfg.DataDir)
			return mcp.Run(cmd.Context(), mgr, cfg.DefaultLanguage)
		},
	}
}
