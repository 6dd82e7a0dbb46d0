package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/portablefs/portablefs/config"
	"github.com/portablefs/portablefs/internal/devpath"
	"github.com/portablefs/portablefs/portable"
	"github.com/portablefs/portablefs/server"
)

var rootCmd = &cobra.Command{
	Use:   "portablefs",
	Short: "portablefs - uniform filesystem access to portable media devices",
	Long: `portablefs presents phones, cameras and other portable media devices
as a navigable tree of storages, directories and files, with the same
commands and API on every platform.`,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached portable devices",
	RunE:  runDevices,
}

var lsCmd = &cobra.Command{
	Use:   "ls <device-path>",
	Short: "List a directory on a device",
	Long:  "List the children of a device path like 'Nokia 6/Internal Storage/Music'",
	Args:  cobra.ExactArgs(1),
	RunE:  runLs,
}

var treeCmd = &cobra.Command{
	Use:   "tree <device-path>",
	Short: "Walk a device subtree and print every entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

var getCmd = &cobra.Command{
	Use:   "get <device-path> <local-path>",
	Short: "Download a file from a device",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

var putCmd = &cobra.Command{
	Use:   "put <local-path> <device-dir>",
	Short: "Upload a local file into a device directory",
	Long:  "Upload a local file into a device directory, creating missing directories along the way",
	Args:  cobra.ExactArgs(2),
	RunE:  runPut,
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <device-path>",
	Short: "Create a directory chain on a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runMkdir,
}

var rmCmd = &cobra.Command{
	Use:   "rm <device-path>",
	Short: "Delete a file or directory subtree on a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portablefs HTTP server",
	Long:  "Start the HTTP server exposing attached devices under /v1",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the portablefs configuration and display the loaded settings",
	RunE:  runValidateConfig,
}

var configFilePath string

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")

	configCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(devicesCmd, lsCmd, treeCmd, getCmd, putCmd, mkdirCmd, rmCmd, serveCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// setup loads configuration, builds the logger and wires the platform
// backend into a manager.
func setup() (config.AppConfig, *zap.Logger, *portable.Manager, error) {
	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return config.AppConfig{}, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := initializeLogger(cfg.Log)
	if err != nil {
		return config.AppConfig{}, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	registry, err := newPlatformRegistry(cfg.Device)
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}
	return cfg, logger, portable.NewManager(registry, logger), nil
}

// findDevice resolves the device named by the first path segment.
func findDevice(ctx context.Context, mgr *portable.Manager, path string) (*portable.Device, error) {
	name, _ := devpath.Cut(devpath.Normalize(path))
	devices, err := mgr.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if devName, _ := dev.GetDescription(ctx); devName == name {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no attached device named %q", name)
}

// resolve maps a full device path onto its content node.
func resolve(ctx context.Context, mgr *portable.Manager, path string) (*portable.Content, error) {
	dev, err := findDevice(ctx, mgr, path)
	if err != nil {
		return nil, err
	}
	content, err := dev.ContentFromDevicePath(ctx, path)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("no content at %q", devpath.Normalize(path))
	}
	return content, nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, _, mgr, err := setup()
	if err != nil {
		return err
	}
	devices, err := mgr.Devices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No portable devices attached")
		return nil
	}
	for _, dev := range devices {
		name, description := dev.GetDescription(ctx)
		fmt.Printf("%s\t%s\t%s\n", name, description, dev.ID())
	}
	return nil
}

func printEntry(c *portable.Content, props portable.Properties) {
	switch props.ContentType {
	case portable.ContentTypeFile:
		fmt.Printf("%-10d %s\n", props.Size, c.FullName())
	default:
		fmt.Printf("%-10s %s/\n", props.ContentType, c.FullName())
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, _, mgr, err := setup()
	if err != nil {
		return err
	}
	content, err := resolve(ctx, mgr, args[0])
	if err != nil {
		return err
	}
	props, err := content.GetProperties(ctx)
	if err != nil {
		return err
	}
	if props.ContentType == portable.ContentTypeFile {
		printEntry(content, props)
		return nil
	}
	it := content.Children(ctx)
	defer it.Release()
	for it.Next() {
		child := it.Content()
		cp, err := child.GetProperties(ctx)
		if err != nil {
			return err
		}
		printEntry(child, cp)
	}
	return it.Err()
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, _, mgr, err := setup()
	if err != nil {
		return err
	}
	content, err := resolve(ctx, mgr, args[0])
	if err != nil {
		return err
	}
	return content.Walk(ctx, func(e portable.WalkEntry) bool {
		fmt.Printf("%s/\n", e.Dir.FullName())
		for _, f := range e.Files {
			fmt.Printf("%s\n", f.FullName())
		}
		return true
	}, portable.WalkOptions{
		OnError: func(dir *portable.Content, err error) bool {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", dir.FullName(), err)
			return true
		},
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, _, mgr, err := setup()
	if err != nil {
		return err
	}
	content, err := resolve(ctx, mgr, args[0])
	if err != nil {
		return err
	}
	if content.Type(ctx) != portable.ContentTypeFile {
		return fmt.Errorf("%q is not a file", args[0])
	}
	return content.DownloadFile(ctx, args[1])
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, _, mgr, err := setup()
	if err != nil {
		return err
	}
	dev, err := findDevice(ctx, mgr, args[1])
	if err != nil {
		return err
	}
	dir, err := dev.MakeDirs(ctx, args[1])
	if err != nil {
		return err
	}
	return dir.UploadFile(ctx, filepath.Base(args[0]), args[0])
}

func runMkdir(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, _, mgr, err := setup()
	if err != nil {
		return err
	}
	dev, err := findDevice(ctx, mgr, args[0])
	if err != nil {
		return err
	}
	dir, err := dev.MakeDirs(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s/\n", dir.FullName())
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	_, _, mgr, err := setup()
	if err != nil {
		return err
	}
	content, err := resolve(ctx, mgr, args[0])
	if err != nil {
		return err
	}
	return content.Remove(ctx)
}

// runServe starts the portablefs HTTP server
func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, mgr, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
		}
	}()

	logger.Info("Starting portablefs server",
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("backend", cfg.Device.Backend))

	router := server.NewRouter(mgr, &cfg.Server, logger)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited gracefully")
	return nil
}

// runValidateConfig validates the configuration and displays settings
func runValidateConfig(cmd *cobra.Command, args []string) error {
	fmt.Println("Validating configuration...")

	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("Listen Address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("Device Backend: %s\n", cfg.Device.Backend)
	if cfg.Device.GvfsRoot != "" {
		fmt.Printf("Mount Root: %s\n", cfg.Device.GvfsRoot)
	}
	fmt.Printf("Log Level: %s\n", cfg.Log.Level)

	return nil
}

// initializeLogger creates a zap logger based on configuration
func initializeLogger(logCfg config.LogConfig) (*zap.Logger, error) {
	var cfg zap.Config

	if logCfg.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch logCfg.Level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}
