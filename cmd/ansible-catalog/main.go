/*
Copyright (c) 2024 Ansible Project

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/work-obs/ansible-catalog/internal/router"
	"github.com/work-obs/ansible-catalog/internal/server"
	"github.com/work-obs/ansible-catalog/pkg/config"
	"github.com/work-obs/ansible-catalog/pkg/plugins/callback"
	"github.com/work-obs/ansible-catalog/pkg/routing"
)

const version = "1.0.0"

var (
	cfgFile         string
	collectionsRoot string
	verbose         int

	reporterName string

	serveHost string
	servePort int
	certFile  string
	keyFile   string
)

var rootCmd = &cobra.Command{
	Use:     "ansible-catalog",
	Short:   "Load and resolve a collection plugin routing catalog",
	Version: version,
	Long: `ansible-catalog discovers Ansible collections under a root directory,
loads each one's plugin routing metadata, and resolves every plugin's
redirect chain to its terminal outcome: a clean target, a tombstone, a
dead end, or a detected cycle.`,
}

var listCmd = &cobra.Command{
	Use:   "list [bundle] [plugin-type]",
	Short: "List bundles, or the plugins of one type within a bundle",
	RunE:  runList,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <bundle> <plugin-type> <plugin-name>",
	Short: "Resolve one plugin's redirect chain and print its outcome",
	Args:  cobra.ExactArgs(3),
	RunE:  runResolve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resolved catalog over HTTPS",
	RunE:  runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ansible-catalog.yaml)")
	rootCmd.PersistentFlags().StringVar(&collectionsRoot, "collections-root", "", "root directory to discover collections under (overrides configured collections_paths)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "verbose mode (-v, -vv, -vvv)")

	resolveCmd.Flags().StringVar(&reporterName, "reporter", "default", "reporter to render the outcome with (default, minimal, json, junit)")

	serveCmd.Flags().StringVar(&serveHost, "host", "", "server bind address (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (overrides config)")
	serveCmd.Flags().StringVar(&certFile, "cert", "", "TLS certificate file")
	serveCmd.Flags().StringVar(&keyFile, "key", "", "TLS private key file")

	rootCmd.AddCommand(listCmd, resolveCmd, serveCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil && verbose > 0 {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

func loadRoutingService() (*router.Service, error) {
	fs := afero.NewOsFs()
	mgr := config.NewManager(fs)
	if err := mgr.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.GetConfig()

	root := collectionsRoot
	if root == "" && len(cfg.CollectionsPaths) > 0 {
		root = cfg.CollectionsPaths[0]
	}
	if root == "" {
		return nil, fmt.Errorf("no collections root configured (use --collections-root or collections_paths)")
	}

	svc := router.NewService(fs, root)
	if err := svc.Load(); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return svc, nil
}

func runList(cmd *cobra.Command, args []string) error {
	svc, err := loadRoutingService()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		bundles, err := svc.Bundles()
		if err != nil {
			return err
		}
		for _, b := range bundles {
			fmt.Println(b)
		}
		return nil
	}

	bundle := args[0]
	br, err := svc.BundleRouting(bundle)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		for pt := range br.PluginData {
			fmt.Println(pt)
		}
		return nil
	}

	pt := routing.PluginType(args[1])
	names := br.PluginData[pt]
	for name := range names {
		fmt.Printf("%s.%s.%s\n", bundle, pt, name)
	}
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	svc, err := loadRoutingService()
	if err != nil {
		return err
	}

	bundle, pt, name := args[0], routing.PluginType(args[1]), args[2]
	pr, err := svc.Resolve(bundle, pt, name)
	if err != nil {
		return err
	}

	registry := callback.NewCallbackPluginRegistry()
	reporter, err := registry.Get(reporterName, os.Stdout)
	if err != nil {
		return err
	}

	reporter.Report(callback.Event{
		Bundle:  bundle,
		Type:    pt,
		Plugin:  name,
		FQN:     routing.FQN(bundle + "." + name),
		Outcome: callback.ClassifyOutcome(pr),
		Chain:   pr.RedirectChain,
		Error:   derefString(pr.RedirectError),
	})

	fmt.Println(reporter.Summary())
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	mgr := config.NewManager(fs)
	if err := mgr.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.GetConfig()

	root := collectionsRoot
	if root == "" && len(cfg.CollectionsPaths) > 0 {
		root = cfg.CollectionsPaths[0]
	}
	if root == "" {
		return fmt.Errorf("no collections root configured (use --collections-root or collections_paths)")
	}

	svc := router.NewService(fs, root)
	if err := svc.Load(); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	serverCfg := cfg.Server
	if serveHost != "" {
		serverCfg.Host = serveHost
	}
	if servePort != 0 {
		serverCfg.Port = servePort
	}
	if certFile != "" {
		serverCfg.TLSCertFile = certFile
	}
	if keyFile != "" {
		serverCfg.TLSKeyFile = keyFile
	}

	srv, err := server.NewServer(&serverCfg, svc)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Println("\nShutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		cancel()
	}()

	fmt.Printf("Starting ansible-catalog server on %s:%d\n", serverCfg.Host, serverCfg.Port)

	if err := srv.Start(serverCfg.TLSCertFile, serverCfg.TLSKeyFile); err != nil && !strings.Contains(err.Error(), "Server closed") {
		return fmt.Errorf("server error: %w", err)
	}

	<-ctx.Done()
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
