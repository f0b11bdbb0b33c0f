package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	vmsync "github.com/vango-dev/vmsync"
	"github.com/vango-dev/vmsync/internal/errors"
	"github.com/vango-dev/vmsync/pkg/viewmodel"
)

func dispatchCmd() *cobra.Command {
	var (
		flags   connectFlags
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dispatch <vm-id> field=value...",
		Short: "Send a state update to a view model",
		Long: `Connect to a view model, wait for its initial state, send the
given fields to the server and disconnect.

Values are parsed as JSON when possible, otherwise sent as strings.

Examples:
  vmsync dispatch HelloWorld FirstName=Jane LastName=Doe
  vmsync dispatch Counter Count=3
  vmsync dispatch TodoList 'Add={"Title":"milk"}' --timeout=5s`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDispatch(ctx, args[0], args[1:], &flags, timeout)
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "How long to wait for the view model")

	return cmd
}

func runDispatch(ctx context.Context, vmID string, pairs []string, flags *connectFlags, timeout time.Duration) error {
	value, err := parseKeyValues(pairs)
	if err != nil {
		return err
	}
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

	client, err := vmsync.New(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	vm, err := client.Connect(vmID, viewmodel.NewStateBag(nil, nil), viewmodel.WithArg(vmArg), viewmodel.WithHeaders(headers))
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.WaitReady(waitCtx, vm); err != nil {
		return err
	}

	if err := sendFields(client.Hub(), vm, value); err != nil {
		return err
	}

	success("Sent %d field(s) to %s", len(value), vmID)
	return nil
}

// dispatchHub is the part of the hub sendFields needs.
type dispatchHub interface {
	IsConnected() bool
	OnError(fn func(error)) func()
}

// sendFields dispatches value and reports a send failure. Dispatch itself
// drops messages silently while disconnected, so that case is checked first.
func sendFields(h dispatchHub, vm *viewmodel.Proxy, value map[string]any) error {
	if !h.IsConnected() {
		return errors.New("E063").
			WithVM(vm.ID()).
			WithSuggestion("The connection dropped after the view model loaded; run the command again")
	}

	var (
		mu      sync.Mutex
		sendErr error
	)
	unsub := h.OnError(func(err error) {
		if errors.Code(err) != "E061" {
			return
		}
		mu.Lock()
		if sendErr == nil {
			sendErr = err
		}
		mu.Unlock()
	})
	vm.Dispatch(value)
	unsub()

	mu.Lock()
	defer mu.Unlock()
	return sendErr
}
