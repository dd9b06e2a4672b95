package main

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"quire/internal/builder"
	"quire/internal/config"
	"quire/internal/logging"
	"quire/internal/metrics"
	"quire/internal/scaffold"
	"quire/internal/server"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new site skeleton",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return scaffold.CreateNewSite(cmd.Context(), args[0])
		},
	}
}

func newNewCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "new <section> <title>",
		Short: "Create a draft page from the site archetype",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := scaffold.CreateNewContent(cmd.Context(), flags.root, args[0], args[1])
			return err
		},
	}
}

type buildFlags struct {
	output string
	unsafe bool
	drafts bool
}

func newBuildCmd(flags *globalFlags) *cobra.Command {
	bf := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			site, err := loadSite(flags, bf, nil)
			if err != nil {
				return err
			}
			if err := site.Load(ctx); err != nil {
				return fmt.Errorf("failed to load site: %w", err)
			}
			if _, err := site.Build(ctx); err != nil {
				return fmt.Errorf("failed to build site: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&bf.output, "output", "o", "", "output directory (default <root>/public)")
	cmd.Flags().BoolVar(&bf.unsafe, "unsafe", false, "disable HTML sanitizing of rendered markdown")
	cmd.Flags().BoolVar(&bf.drafts, "drafts", false, "include draft pages and sections")
	return cmd
}

type serveFlags struct {
	buildFlags
	iface   string
	port    int
	metrics bool
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site and rebuild it as files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, sf)
		},
	}
	cmd.Flags().StringVar(&sf.iface, "interface", "127.0.0.1", "interface to bind")
	cmd.Flags().IntVarP(&sf.port, "port", "p", 1111, "port to listen on")
	cmd.Flags().StringVarP(&sf.output, "output", "o", "", "output directory (default <root>/public)")
	cmd.Flags().BoolVar(&sf.unsafe, "unsafe", false, "disable HTML sanitizing of rendered markdown")
	cmd.Flags().BoolVar(&sf.drafts, "drafts", false, "include draft pages and sections")
	cmd.Flags().BoolVar(&sf.metrics, "metrics", false, "expose Prometheus metrics on /metrics")
	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, sf *serveFlags) error {
	addr := net.JoinHostPort(sf.iface, strconv.Itoa(sf.port))
	site, err := loadSite(flags, &sf.buildFlags, func(cfg *config.SiteConfig) {
		cfg.BaseURL = "http://" + addr + "/"
	})
	if err != nil {
		return err
	}

	var reg *prom.Registry
	if sf.metrics {
		reg = prom.NewRegistry()
		site.Metrics = metrics.NewPrometheusRecorder(reg)
	}
	if err := site.Load(ctx); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}
	if _, err := site.Build(ctx); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	srv := server.New(site, server.Options{Addr: addr, Registry: reg}, logging.FromContext(ctx))
	return srv.Run(ctx)
}

// loadSite reads the configuration and prepares a build controller. Full
// builds always start from an empty destination.
func loadSite(flags *globalFlags, bf *buildFlags, override func(*config.SiteConfig)) (*builder.Site, error) {
	root, err := filepath.Abs(flags.root)
	if err != nil {
		return nil, err
	}
	cfgPath := flags.config
	if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(root, cfgPath)
	}
	cfg, err := config.LoadSiteConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}

	layout := config.NewLayout(root)
	if bf.output != "" {
		if layout.Output, err = filepath.Abs(bf.output); err != nil {
			return nil, err
		}
	}
	if layout.Output == root {
		return nil, fmt.Errorf("output directory cannot be the site root %s", root)
	}
	return builder.New(layout, cfg, builder.Options{
		CleanDestination: true,
		Unsafe:           bf.unsafe,
		Drafts:           bf.drafts,
	})
}
