package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pom_automation/application/registry"
	"pom_automation/application/session"
	"pom_automation/infrastructure/browser"
	"pom_automation/infrastructure/config"
	"pom_automation/infrastructure/logging"
	"pom_automation/presentation/terminal"
)

var rootCmd = &cobra.Command{
	Use:   "pom",
	Short: "Page objects for the project tracker",
	Long: `Drive the project tracker through its page objects.

Settings come from the environment or a .env file (BASE_URL, DRIVER,
BROWSER, HEADLESS, timeouts in *_TIMEOUT_MS, LOGIN_USER, LOGIN_PASSWORD).
DRIVER=memory serves a built-in demo site without a browser.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List the known pages",
	Run: func(cmd *cobra.Command, args []string) {
		reg := registry.Default()
		fmt.Fprintf(cmd.OutOrStdout(), "registry v%d\n", reg.Version())
		terminal.ListPages(cmd.OutOrStdout(), reg)
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell over a browser session",
	RunE:  runShell,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Sign in and verify the dashboard appears",
	RunE:  runCheck,
}

var (
	driverFlag   string
	userFlag     string
	passwordFlag string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Driver backend: playwright, selenium or memory (overrides DRIVER)")
	checkCmd.Flags().StringVar(&userFlag, "user", "", "Username (overrides LOGIN_USER)")
	checkCmd.Flags().StringVar(&passwordFlag, "password", "", "Password (overrides LOGIN_PASSWORD)")

	rootCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(checkCmd)
}

func setup() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if driverFlag != "" {
		cfg.Driver = driverFlag
		if err := cfg.Validate(); err != nil {
			return config.Config{}, nil, err
		}
	}
	return cfg, logging.New(cfg.LogLevel, os.Stderr), nil
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	termInterface, err := terminal.NewTerminalInterface(cfg, logger, os.Stdin, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer termInterface.Close()

	return termInterface.Run(cmd.Context())
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if userFlag != "" {
		cfg.LoginUser = userFlag
	}
	if passwordFlag != "" {
		cfg.LoginPassword = passwordFlag
	}

	driver, err := browser.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	s := session.New(driver, terminal.PageOptions(cfg, logger))
	defer s.Close()

	user, password := cfg.LoginUser, cfg.LoginPassword
	if cfg.Driver == config.DriverMemory && user == "" {
		user, password = browser.DemoUser, browser.DemoPassword
	}
	if err := terminal.LoginCheck(cmd.Context(), s, terminal.Policy(cfg, logger), user, password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "login check passed for %s\n", user)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
