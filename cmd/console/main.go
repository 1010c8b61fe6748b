// Package main 是交互式控制台客户端的入口点。
package main

import (
	"context"
	"fmt"
	"os"
	"philo-chat-go/internal/app"
	"philo-chat-go/internal/config"
	"philo-chat-go/pkg/log"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd 启动交互式会话
var rootCmd = &cobra.Command{
	Use:   "philo-chat",
	Short: "Chat with famous philosophers from the terminal",
	Long: `philo-chat is an interactive console for philosopher-persona chats.

Sign up, log in, open chats with a philosopher of your choice and talk.
Type 'help' inside the console to list the available commands.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		// 控制台只输出错误日志，避免干扰交互
		log.Init("error", cfg.Log.Format, cfg.Log.OutputPath)
		defer log.Sync()

		application, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		defer application.Close()

		c := newConsole(application.SessionService, cmd.InOrStdin(), cmd.OutOrStdout())
		return c.run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "Path to the config file")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
