package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	tcpAddr    string
	httpAddr   string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()

	envTCP := os.Getenv("TCP_ADDR")
	if envTCP == "" {
		envTCP = ":12345"
	}
	envHTTP := os.Getenv("HTTP_ADDR")
	if envHTTP == "" {
		envHTTP = ":8080"
	}
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "trivia-server",
		Short: "Multiplayer trivia server with synchronized rounds over TCP",
	}

	cmd.PersistentFlags().StringVar(&tcpAddr, "tcp-addr", envTCP, "address for the player TCP listener")
	cmd.PersistentFlags().StringVar(&httpAddr, "http-addr", envHTTP, "address for the operator HTTP API")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &tcpAddr, &httpAddr))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
