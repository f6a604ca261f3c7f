// Command orchestrator is the shell surface over the task orchestrator: it
// loads configuration, wires the device surface, locator, asset store,
// module registry, and reference handlers together behind the task runner,
// and exposes that as a small set of cobra subcommands plus an interactive
// two-item menu (fast-form vs. natural language).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ccdanpian/vision-agent/pkg/assets"
	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/device"
	"github.com/ccdanpian/vision-agent/pkg/executor"
	"github.com/ccdanpian/vision-agent/pkg/failover"
	"github.com/ccdanpian/vision-agent/pkg/handlers/wechat"
	"github.com/ccdanpian/vision-agent/pkg/locator"
	"github.com/ccdanpian/vision-agent/pkg/logger"
	"github.com/ccdanpian/vision-agent/pkg/providers"
	"github.com/ccdanpian/vision-agent/pkg/registry"
	"github.com/ccdanpian/vision-agent/pkg/runner"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Android task orchestrator: classify, route, and execute device automation tasks",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON config file (defaults to built-in + env)")

	rootCmd.AddCommand(newListDevicesCmd())
	rootCmd.AddCommand(newShowModulesCmd())
	rootCmd.AddCommand(newScreenshotCmd())
	rootCmd.AddCommand(newRunTaskCmd())
	rootCmd.AddCommand(newInteractiveCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(configPath)
}

func newListDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "Show the configured device and its foreground package (other attached devices are not listed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			surface := device.NewSurface(cfg)
			ctx := context.Background()
			pkg, err := surface.ForegroundPackage(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("device %q, foreground package: %s\n", cfg.Device.DefaultDevice, pkg)
			return nil
		},
	}
}

func newShowModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-modules",
		Short: "List discovered app handlers under the apps directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mods, err := registry.DiscoverModules(expandHome(cfg.Apps.Dir))
			if err != nil {
				return err
			}
			for _, m := range mods {
				fmt.Printf("%-12s %-24s %s\n", m.Name, m.PackageID, m.Description)
			}
			return nil
		},
	}
}

func newScreenshotCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture a screenshot from the bound device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			surface := device.NewSurface(cfg)
			shot, err := surface.Screenshot(context.Background())
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = "screenshot." + shot.Format
			}
			if err := os.WriteFile(outPath, shot.Bytes, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%dx%d, crop offset %dpx)\n", outPath, shot.Width, shot.Height, shot.CropOffsetY)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file path")
	return cmd
}

func newRunTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-task [utterance]",
		Short: "Classify, route, and execute a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			r, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			outcome := r.RunTask(context.Background(), args[0])
			if err := reportOutcome(outcome); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(outcome.ExitCode)
			}
			return nil
		},
	}
}

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Interactive two-item menu: fixed-form task vs. natural-language task",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			r, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			return runInteractive(r)
		},
	}
}

// runInteractive prints the two-item menu (fixed-form `ss:type:fields` or
// natural-language entry) and hands every non-empty line to the runner
// exactly as a one-shot run-task call would. The menu is not read as a
// choice: a line is fixed-form if it carries the `ss:` prefix and natural
// language otherwise. The menu is printed again when an outcome sets
// RestartModeSelection.
func runInteractive(r *runner.Runner) error {
	rl, err := readline.New("orchestrator> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("1) fixed-form task (ss:type:fields)   2) natural-language task   q) quit")
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "q" || line == "quit" || line == "exit" {
			return nil
		}

		outcome := r.RunTask(context.Background(), line)
		if err := reportOutcome(outcome); err != nil {
			logger.Warn("interactive: " + err.Error())
		}
		if outcome.RestartModeSelection {
			fmt.Println("1) fixed-form task (ss:type:fields)   2) natural-language task   q) quit")
		}
	}
}

// reportOutcome prints a human-readable summary and returns an error whose
// presence signals the process should exit non-zero, per §6's exit-code
// contract (0 success, 1 task failure, 2 configuration/device-unavailable).
func reportOutcome(o runner.Outcome) error {
	fmt.Printf("[%s] handler=%s workflow=%s: %s\n", o.Status, o.HandlerName, o.WorkflowName, o.Message)
	if o.ExitCode == 0 {
		return nil
	}
	return fmt.Errorf("task did not complete (exit %d)", o.ExitCode)
}

// buildRunner wires C1-C9 together for one process lifetime: device
// surface, locator, per-app asset stores and workflow sets discovered from
// the apps directory, the module registry, and one Handler per discovered
// app directory that has a matching pkg/handlers implementation.
//
// Only the wechat reference handler ships in this repository; additional
// app directories are discovered for routing and module listing but are
// served by the "system" fallback handler until their own pkg/handlers
// package is registered here.
func buildRunner(cfg *config.Config) (*runner.Runner, error) {
	surface := device.NewSurface(cfg)

	var provider providers.LLMProvider
	if cfg.LLM.Model != "" {
		if _, err := providers.CreateProviderForModel(cfg, cfg.LLM.Model); err != nil {
			logger.Warn("orchestrator: no model provider configured, classifier/replan/planner paths will degrade: " + err.Error())
		} else {
			// One failover manager covers every model-path caller in this
			// process (classifier, executor replan, C9 planner): they all
			// share the same primary/fallback chain and rate-limit state.
			mgr := failover.NewManager(cfg, cfg.LLM.Model, cfg.LLM.FallbackModels, cfg.LLM.FallbackModel)
			provider = failover.Provider(mgr)
		}
	}

	loc := locator.New(cfg, provider)

	appsDir := expandHome(cfg.Apps.Dir)
	mods, err := registry.DiscoverModules(appsDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("discovering app modules: %w", err)
	}
	mods = append(mods, registry.ModuleInfo{Name: "system", Description: "fallback handler for unrouted tasks"})
	reg := registry.NewRegistry(mods)

	var handlers []runner.Handler
	for _, m := range mods {
		if m.Name != "wechat" {
			continue
		}
		h, err := buildWechatHandler(cfg, surface, loc, provider, m.Dir)
		if err != nil {
			return nil, fmt.Errorf("building wechat handler: %w", err)
		}
		handlers = append(handlers, h)
	}
	handlers = append(handlers, systemHandler{})

	return runner.New(cfg, surface, provider, reg, handlers), nil
}

func buildWechatHandler(cfg *config.Config, surface device.Surface, loc *locator.Locator, provider providers.LLMProvider, dir string) (*wechat.Handler, error) {
	screens, err := workflow.LoadScreens(filepath.Join(dir, "screens.yaml"))
	if err != nil {
		return nil, err
	}
	aliases, err := assets.LoadAliases(filepath.Join(dir, "aliases.yaml"))
	if err != nil {
		return nil, err
	}
	store := assets.NewStore(filepath.Join(dir, "images"), aliases)
	workflows, err := workflow.LoadDir(filepath.Join(dir, "workflows"))
	if err != nil {
		return nil, err
	}
	ex := executor.New(cfg, surface, loc, executor.ScreenResolver{Screens: screens, Assets: store}, provider, "wechat", workflows)
	return wechat.New(ex, workflows, provider, cfg.LLM.Model), nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
