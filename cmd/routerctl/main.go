// Command routerctl is the operator-facing control surface for a running
// routeapi service: it triggers routing passes and submits ECO edits,
// grounded on the teacher's cmd/preprocess and cmd/server flag-based
// mains, generalized to cobra subcommands the way flowlogs-pipeline's
// cmd/flowlogs-pipeline layers config (file, FPGAROUTE_* environment,
// flag) over a single root command.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"fpgaroute/pkg/routeconfig"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	serverAddr string
	v          = viper.New()
)

func main() {
	root := &cobra.Command{
		Use:   "routerctl",
		Short: "Control surface for a running routeapi service",
	}
	root.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8080", "routeapi base URL")
	cfg := routeconfig.BindFlags(root, v)

	root.AddCommand(
		newRouteCmd(),
		newEcoCmd(),
		newStatsCmd(),
		newConfigCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route",
		Short: "Trigger a scheduler run over the currently loaded design",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(cmd.OutOrStdout(), "/api/v1/route", map[string]interface{}{})
		},
	}
}

func newEcoCmd() *cobra.Command {
	eco := &cobra.Command{Use: "eco", Short: "Submit ECO edits (connect/disconnect)"}

	var pins []string
	disconnect := &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect one or more pins (§4.6)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(cmd.OutOrStdout(), "/api/v1/eco/disconnect", map[string]interface{}{
				"pins": pins,
			})
		},
	}
	disconnect.Flags().StringArrayVar(&pins, "pin", nil, "hierarchical pin reference (cell/port), repeatable")

	var netName string
	var connectPins []string
	connect := &cobra.Command{
		Use:   "connect",
		Short: "Connect one or more pins onto a net (§4.7)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(cmd.OutOrStdout(), "/api/v1/eco/connect", map[string]interface{}{
				"nets": map[string][]string{netName: connectPins},
			})
		},
	}
	connect.Flags().StringVar(&netName, "net", "", "net name to assign the pins to")
	connect.Flags().StringArrayVar(&connectPins, "pin", nil, "hierarchical pin reference (cell/port), repeatable")
	connect.MarkFlagRequired("net")

	eco.AddCommand(disconnect, connect)
	return eco
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print design stats (cell/net counts, unrouted nets)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(cmd.OutOrStdout(), "/api/v1/stats")
		},
	}
}

func newConfigCmd(cfg *routeconfig.Config) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Manage router configuration"}

	var out string
	init := &cobra.Command{
		Use:   "init",
		Short: "Write a config file seeded with routeconfig.Default() values",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			return yaml.NewEncoder(f).Encode(cfg)
		},
	}
	init.Flags().StringVar(&out, "out", "fpgaroute.yaml", "path to write")
	configCmd.AddCommand(init)
	return configCmd
}

func postJSON(w io.Writer, path string, body interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(serverAddr+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("routerctl: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	return relayResponse(w, resp)
}

func getJSON(w io.Writer, path string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverAddr + path)
	if err != nil {
		return fmt.Errorf("routerctl: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	return relayResponse(w, resp)
}

func relayResponse(w io.Writer, resp *http.Response) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, mustReadAll(resp.Body), "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(w, pretty.String())
	if resp.StatusCode >= 400 {
		return fmt.Errorf("routerctl: server returned %s", resp.Status)
	}
	return nil
}

func mustReadAll(r io.Reader) []byte {
	b, _ := io.ReadAll(r)
	return b
}
