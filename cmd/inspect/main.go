package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"
	"tutor-realtime/client"
	"tutor-realtime/domain"
	grpcserver "tutor-realtime/infrastructure/grpc/server"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerURL  string        `envconfig:"INSPECT_SERVER_URL" default:"http://localhost:8000"`
	HealthAddr string        `envconfig:"INSPECT_HEALTH_ADDR" default:"localhost:8001"`
	Token      string        `envconfig:"INSPECT_TOKEN"`
	Timeout    time.Duration `envconfig:"INSPECT_TIMEOUT" default:"5s"`
	// INSPECT_COLOURS enables colorized output
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

const usage = `usage: inspect <command> [flags]

commands:
  presence              online users of the process with their last activity
  channel -id <uuid>    online members of a channel
  stats                 runtime and process snapshot
  health                notification bridge health (gRPC)
  tail                  print every event delivered to the token's user`

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return exitConfig, nil
	}
	color.Enable = cfg.Colours

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c := client.New(cfg.ServerURL, cfg.Token, cfg.Timeout)

	var err error
	switch args[0] {
	case "presence":
		err = presence(ctx, c)
	case "channel":
		fs := flag.NewFlagSet("channel", flag.ContinueOnError)
		id := fs.String("id", "", "channel id")
		if err := fs.Parse(args[1:]); err != nil || *id == "" {
			return exitConfig, fmt.Errorf("channel requires -id")
		}
		err = channel(ctx, c, domain.ChannelID(*id))
	case "stats":
		err = stats(ctx, c)
	case "health":
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		var status string
		status, err = client.CheckHealth(checkCtx, cfg.HealthAddr, grpcserver.BridgeService)
		if err == nil {
			printHealth(status)
		}
	case "tail":
		err = c.Tail(ctx, printFrame)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return exitConfig, fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func presence(ctx context.Context, c *client.Client) error {
	users, err := c.OnlineUsers(ctx)
	if err != nil {
		return err
	}
	table := newTable("User", "Online", "Last seen")
	for _, userID := range users {
		status, err := c.Status(ctx, userID)
		if err != nil {
			return err
		}
		lastSeen := "-"
		if status.LastSeen != nil {
			lastSeen = status.LastSeen.Local().Format("15:04:05")
		}
		table.Append([]string{string(userID), onlineLabel(status.IsOnline), lastSeen})
	}
	table.Render()
	fmt.Printf("\n%d user(s) online\n", len(users))
	return nil
}

func channel(ctx context.Context, c *client.Client, channelID domain.ChannelID) error {
	members, err := c.OnlineMembers(ctx, channelID)
	if err != nil {
		return err
	}
	table := newTable("Channel", "Member")
	for _, userID := range members {
		table.Append([]string{string(channelID), string(userID)})
	}
	table.Render()
	fmt.Printf("\n%d member(s) online in %s\n", len(members), channelID)
	return nil
}

func stats(ctx context.Context, c *client.Client) error {
	snapshot, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := newTable("Metric", "Value")
	for _, k := range keys {
		table.Append([]string{k, fmt.Sprint(snapshot[k])})
	}
	table.Render()
	return nil
}

func onlineLabel(online bool) string {
	if online {
		return color.FgGreen.Render("online")
	}
	return color.FgGray.Render("offline")
}

func printHealth(status string) {
	if status == "SERVING" {
		color.FgGreen.Printf("%s: %s\n", grpcserver.BridgeService, status)
		return
	}
	color.FgRed.Printf("%s: %s\n", grpcserver.BridgeService, status)
}

func printFrame(frame map[string]any) {
	kind, _ := frame["type"].(string)
	body, _ := json.Marshal(frame["data"])
	at := time.Now().Format("15:04:05")
	switch kind {
	case "error":
		color.FgRed.Printf("%s %-16s %v\n", at, kind, frame["message"])
	case "connection", "ack":
		color.FgGray.Printf("%s %-16s %v\n", at, kind, frame)
	case "presence":
		color.FgYellow.Printf("%s %-16s %s\n", at, kind, body)
	default:
		color.FgCyan.Printf("%s %-16s ", at, kind)
		fmt.Printf("channel=%v %s\n", frame["channel_id"], body)
	}
}
