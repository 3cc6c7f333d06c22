package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-vocab/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration settings",
	Long:  `Manage configuration settings for ytvocab.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init [DATABASE_URL]",
	Short: "Initialize configuration file",
	Long: `Create a new configuration file. Passing a DATABASE_URL selects the postgres backend,
otherwise words are stored in a local sqlite file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var databaseURL string
		if len(args) > 0 {
			databaseURL = args[0]
		}

		if err := config.InitConfig(databaseURL); err != nil {
			return err
		}

		configPath, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		cmd.Printf("Created configuration file: %s\n", configPath)
		cmd.Println("Set OPENAI_API_KEY in your environment or a .env file before practicing.")

		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the configuration file path and the settings stored in it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		cmd.Printf("Configuration file: %s\n\n", configPath)

		cfg, err := config.LoadFile()
		if err != nil {
			return err
		}

		cmd.Printf("storage:          %s\n", cfg.Storage)
		cmd.Printf("database_url:     %s\n", cfg.DatabaseURL)
		cmd.Printf("sqlite_path:      %s\n", cfg.SQLitePath)
		cmd.Printf("openai_api_key:   %s\n", maskSecret(cfg.OpenAIAPIKey))
		cmd.Printf("openai_model:     %s\n", cfg.OpenAIModel)
		cmd.Printf("source_language:  %s\n", cfg.SourceLanguage)
		cmd.Printf("log_level:        %s\n", cfg.LogLevel)
		cmd.Printf("log_format:       %s\n", cfg.LogFormat)
		cmd.Printf("scheduler:        retention=%.2f maximum_interval=%.0fd fuzz=%t\n",
			cfg.Scheduler.RequestRetention, cfg.Scheduler.MaximumInterval, cfg.Scheduler.EnableFuzz)

		return nil
	},
}

// maskSecret keeps the last four characters of a key
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
