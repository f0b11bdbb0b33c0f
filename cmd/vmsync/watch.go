package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	vmsync "github.com/vango-dev/vmsync"
	"github.com/vango-dev/vmsync/pkg/viewmodel"
)

func watchCmd() *cobra.Command {
	var flags connectFlags

	cmd := &cobra.Command{
		Use:   "watch <vm-id>",
		Short: "Print a view model's state as it changes",
		Long: `Connect to a view model and print its full state after
every update from the server, until interrupted.

Examples:
  vmsync watch HelloWorld
  vmsync watch TodoList --url=ws://localhost:5000/dotnetify
  vmsync watch Customer --arg id=42 --header Authorization="Bearer x"
  vmsync watch LiveChart --metrics-addr=:9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, args[0], &flags, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.metricsAddr, "metrics-addr", "m", "", "Serve /metrics and /healthz on this address")

	return cmd
}

func runWatch(ctx context.Context, vmID string, flags *connectFlags, out io.Writer) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	vmArg, err := parseKeyValues(flags.args)
	if err != nil {
		return err
	}
	headers, err := parseKeyValues(flags.headers)
	if err != nil {
		return err
	}

	var metrics *prometheusServer
	if cfg.File.Metrics.Enabled {
		metrics = &prometheusServer{registry: newMetricsRegistry()}
		cfg.Registerer = metrics.registry
	}

	client, err := vmsync.New(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	client.OnError(func(err error) {
		warn("%s", compactError(err))
	})

	ctx, cancel := context.WithCancel(ctx)
	if metrics != nil {
		metrics.start(ctx, cfg.File.Metrics.Addr, client.Hub().IsConnected)
		defer metrics.wait()
	}
	defer cancel()

	var mu sync.Mutex
	bag := viewmodel.NewStateBag(nil, nil)
	bag.OnChange(func(s viewmodel.State) {
		mu.Lock()
		defer mu.Unlock()
		if err := printState(out, vmID, s); err != nil {
			errorMsg("print state: %v", err)
		}
	})

	if _, err := client.Connect(vmID, bag, viewmodel.WithArg(vmArg), viewmodel.WithHeaders(headers)); err != nil {
		return err
	}
	info("Watching %s on %s (Ctrl+C to stop)", vmID, cfg.File.Hub.URL)

	<-ctx.Done()
	fmt.Fprintln(out)
	success("Stopped watching %s", vmID)
	return nil
}

// printState writes s as indented JSON under a header line.
func printState(out io.Writer, vmID string, s viewmodel.State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "── %s ──\n%s\n", vmID, data)
	return err
}

// prometheusServer runs the metrics endpoint for the lifetime of a command.
type prometheusServer struct {
	registry *prometheus.Registry
	done     chan struct{}
}

func (p *prometheusServer) start(ctx context.Context, addr string, connected func() bool) {
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		serveMetrics(ctx, addr, metricsRouter(p.registry, connected))
	}()
}

func (p *prometheusServer) wait() {
	if p.done != nil {
		<-p.done
	}
}
