// ems-client runs one request against an ems-server.
//
// Usage:
//
//	ems-client [flags] create <event_id> <rows> <cols>
//	ems-client [flags] reserve <event_id> <row>,<col> [<row>,<col> ...]
//	ems-client [flags] show <event_id>
//	ems-client [flags] list
//
// The client creates its request and response pipes, registers them with
// the server and waits for a free session before sending the request.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/iliyamo/event-management-system/internal/client"
	"github.com/iliyamo/event-management-system/internal/config"
	"github.com/iliyamo/event-management-system/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ems-client: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var envFile, serverPath, reqPath, respPath string
	flagSet := pflag.NewFlagSet("ems-client", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVar(&serverPath, "server", "", "server pipe path (default $EMS_SERVER_PIPE)")
	flagSet.StringVar(&reqPath, "req", "", "request pipe path (default /tmp/ems-<pid>.req)")
	flagSet.StringVar(&respPath, "resp", "", "response pipe path (default /tmp/ems-<pid>.resp)")
	flagSet.SetInterspersed(false)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	if serverPath == "" {
		serverPath = os.Getenv("EMS_SERVER_PIPE")
	}
	if serverPath == "" {
		return errors.New("no server pipe: pass --server or set EMS_SERVER_PIPE")
	}
	if reqPath == "" {
		reqPath = fmt.Sprintf("/tmp/ems-%d.req", os.Getpid())
	}
	if respPath == "" {
		respPath = fmt.Sprintf("/tmp/ems-%d.resp", os.Getpid())
	}

	cmd, err := parseCommand(flagSet.Args())
	if err != nil {
		return err
	}

	c, err := client.Setup(reqPath, respPath, serverPath)
	if err != nil {
		return err
	}
	runErr := cmd.exec(c, out)
	if err := c.Quit(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// session is the part of *client.Client commands use.
type session interface {
	Create(eventID uint32, rows, cols uint64) error
	Reserve(eventID uint32, seats []store.Seat) error
	Show(eventID uint32) (store.Grid, error)
	ListEvents() ([]uint32, error)
}

type command struct {
	exec func(s session, out io.Writer) error
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command: create, reserve, show or list")
	}
	name, args := args[0], args[1:]
	switch name {
	case "create":
		if len(args) != 3 {
			return command{}, errors.New("usage: create <event_id> <rows> <cols>")
		}
		id, err := parseEventID(args[0])
		if err != nil {
			return command{}, err
		}
		rows, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return command{}, fmt.Errorf("invalid rows %q", args[1])
		}
		cols, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return command{}, fmt.Errorf("invalid cols %q", args[2])
		}
		return command{exec: func(s session, _ io.Writer) error {
			return s.Create(id, rows, cols)
		}}, nil

	case "reserve":
		if len(args) < 2 {
			return command{}, errors.New("usage: reserve <event_id> <row>,<col> [<row>,<col> ...]")
		}
		id, err := parseEventID(args[0])
		if err != nil {
			return command{}, err
		}
		seats := make([]store.Seat, 0, len(args)-1)
		for _, a := range args[1:] {
			seat, err := parseSeat(a)
			if err != nil {
				return command{}, err
			}
			seats = append(seats, seat)
		}
		return command{exec: func(s session, _ io.Writer) error {
			return s.Reserve(id, seats)
		}}, nil

	case "show":
		if len(args) != 1 {
			return command{}, errors.New("usage: show <event_id>")
		}
		id, err := parseEventID(args[0])
		if err != nil {
			return command{}, err
		}
		return command{exec: func(s session, out io.Writer) error {
			g, err := s.Show(id)
			if err != nil {
				return err
			}
			return store.WriteGrid(out, g.Cols, g.Seats)
		}}, nil

	case "list":
		if len(args) != 0 {
			return command{}, errors.New("usage: list")
		}
		return command{exec: func(s session, out io.Writer) error {
			ids, err := s.ListEvents()
			if err != nil {
				return err
			}
			return writeEventList(out, ids)
		}}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", name)
}

func parseEventID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return uint32(id), nil
}

// parseSeat reads a 1-based "row,col" pair.
func parseSeat(s string) (store.Seat, error) {
	row, col, ok := strings.Cut(s, ",")
	if !ok {
		return store.Seat{}, fmt.Errorf("invalid seat %q, want row,col", s)
	}
	r, err := strconv.ParseUint(strings.TrimSpace(row), 10, 64)
	if err != nil {
		return store.Seat{}, fmt.Errorf("invalid seat row in %q", s)
	}
	c, err := strconv.ParseUint(strings.TrimSpace(col), 10, 64)
	if err != nil {
		return store.Seat{}, fmt.Errorf("invalid seat column in %q", s)
	}
	return store.Seat{Row: r, Col: c}, nil
}

func writeEventList(w io.Writer, ids []uint32) error {
	if len(ids) == 0 {
		_, err := io.WriteString(w, "No events\n")
		return err
	}
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "Event: %d\n", id)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
