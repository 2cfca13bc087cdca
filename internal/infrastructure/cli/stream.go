package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/felixgeelhaar/flowboard/internal/domain/board"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/live"
	"github.com/spf13/cobra"
)

var streamJSON bool

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Print the task board each time the backend pushes a change",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fwd := newEventForwarder(64)
		store, err := s.newStore(live.WithOnChange(fwd.forward))
		if err != nil {
			return err
		}
		defer store.Disconnect()
		// Runs before Disconnect so its final event cannot block.
		defer fwd.stop()

		if err := store.Connect(cmd.Context()); err != nil {
			return MapError(err)
		}
		s.logger.WithField("url", s.cfg.ChannelURL).Info("streaming task updates")

		redialing := false
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case e := <-fwd.events:
				switch e.Kind {
				case live.EventSnapshot:
					fwd.stale.Store(false)
					if err := printSnapshot(out, store.Snapshot(), streamJSON); err != nil {
						return err
					}
				case live.EventConnection:
					switch e.State {
					case live.ConnConnecting:
						redialing = true
					case live.ConnOpen:
						redialing = false
					case live.ConnClosed:
						if redialing {
							return MapError(fmt.Errorf("reconnect failed: %w", e.Err))
						}
						if !s.cfg.Reconnect.Enabled {
							if fwd.stale.Swap(false) {
								if err := printSnapshot(out, store.Snapshot(), streamJSON); err != nil {
									return err
								}
							}
							fmt.Fprintln(cmd.ErrOrStderr(), "push channel closed")
							return nil
						}
					}
				}
			}
		}
	},
}

func init() {
	streamCmd.Flags().BoolVar(&streamJSON, "json", false, "print the task collection as JSON")
	RootCmd.AddCommand(streamCmd)
}

// eventForwarder hands store events to the stream loop. Connection events
// are never dropped. A snapshot event that finds the buffer full only marks
// the output stale, since the next printed snapshot reads the current state.
type eventForwarder struct {
	events chan live.Event
	done   chan struct{}
	stale  atomic.Bool
}

func newEventForwarder(size int) *eventForwarder {
	return &eventForwarder{
		events: make(chan live.Event, size),
		done:   make(chan struct{}),
	}
}

func (f *eventForwarder) forward(e live.Event) {
	if e.Kind == live.EventSnapshot {
		select {
		case f.events <- e:
		default:
			f.stale.Store(true)
		}
		return
	}
	select {
	case f.events <- e:
	case <-f.done:
	}
}

// stop releases senders blocked on a connection event once the loop is gone.
func (f *eventForwarder) stop() {
	close(f.done)
}

func printSnapshot(w io.Writer, tasks []board.Task, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		return enc.Encode(tasks)
	}
	b := board.GroupByStatus(tasks)
	parts := make([]string, 0, 4)
	for _, st := range board.Stages() {
		n := len(b.Column(st))
		if st == board.StageUnrecognized && n == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d", st.Title(), n))
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, " | "))
	return err
}
